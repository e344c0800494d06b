package compute

import (
	"fmt"

	"github.com/gogpu/compute/gpucore"
)

// buffer is host-visible device memory owned by one device.
type buffer struct {
	handle Handle
	buf    gpucore.Buffer
}

// OpenBuffer allocates length bytes on the device. If src is non-nil the
// first length bytes of src are copied in, otherwise the buffer is
// zero-filled. The returned slice aliases the buffer memory and may be
// read and written directly until CloseBuffer.
//
// The caller must not access the slice while a run using the buffer is
// still in flight.
func (c *Context) OpenBuffer(dev Handle, length int, src []byte) (Handle, []byte, error) {
	if length < 0 {
		return 0, nil, fmt.Errorf("%w: negative buffer length %d", ErrInvalidArgument, length)
	}
	if src != nil && len(src) < length {
		return 0, nil, fmt.Errorf("%w: source has %d bytes, need %d", ErrInvalidArgument, len(src), length)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupDevice(dev)
	if err != nil {
		return 0, nil, err
	}

	var contents []byte
	if src != nil {
		contents = src[:length]
	}
	buf, err := d.dev.NewBuffer(length, contents)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %d bytes: %w", ErrCouldNotMakeBuffer, length, err)
	}

	b := &buffer{handle: handles.nextHandle(), buf: buf}
	d.buffers[b.handle] = b

	Logger().Debug("compute: buffer opened", "device", dev, "buffer", b.handle, "bytes", length)
	return b.handle, buf.Contents(), nil
}

// Buffer returns the host view of an open buffer.
func (c *Context) Buffer(dev, buf Handle) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, b, err := c.lookupBuffer(dev, buf)
	if err != nil {
		return nil, err
	}
	return b.buf.Contents(), nil
}

// CloseBuffer releases the buffer. Slices previously returned for it must
// not be used afterwards.
func (c *Context) CloseBuffer(dev, buf Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, b, err := c.lookupBuffer(dev, buf)
	if err != nil {
		return err
	}
	delete(d.buffers, buf)
	b.buf.Release()
	return nil
}

// lookupBuffer resolves a device and one of its buffers. c.mu must be held.
func (c *Context) lookupBuffer(dev, buf Handle) (*device, *buffer, error) {
	d, err := c.lookupDevice(dev)
	if err != nil {
		return nil, nil, err
	}
	b, ok := d.buffers[buf]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrBufferNotFound, buf)
	}
	return d, b, nil
}
