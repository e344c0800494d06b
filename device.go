package compute

import (
	"errors"
	"fmt"

	"github.com/gogpu/compute/gpucore"
)

// device is an opened backend device with its queue. It owns the kernels
// and buffers opened on it.
type device struct {
	handle  Handle
	dev     gpucore.Device
	queue   gpucore.Queue
	info    gpucore.DeviceInfo
	kernels map[Handle]*kernel
	buffers map[Handle]*buffer
}

func (d *device) release() {
	for _, k := range d.kernels {
		k.release()
	}
	for _, b := range d.buffers {
		b.buf.Release()
	}
	d.kernels = nil
	d.buffers = nil
	d.queue.Release()
	d.dev.Release()
}

// Devices lists the devices of the backend. Nothing is opened.
func (c *Context) Devices() ([]gpucore.DeviceInfo, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrContextClosed
	}
	infos, err := c.backend.Devices()
	if err != nil {
		return nil, fmt.Errorf("compute: enumerate devices: %w", err)
	}
	return infos, nil
}

// OpenDevice opens the device at index and a command queue on it.
// A negative index selects the backend's default device.
// It returns the device handle and the device name.
func (c *Context) OpenDevice(index int) (Handle, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, "", ErrContextClosed
	}

	dev, err := c.backend.OpenDevice(index)
	if err != nil {
		if errors.Is(err, gpucore.ErrNoDevice) {
			return 0, "", fmt.Errorf("%w: index %d", ErrDeviceNotFound, index)
		}
		return 0, "", fmt.Errorf("%w: index %d: %w", ErrDeviceNotFound, index, err)
	}
	q, err := dev.NewQueue()
	if err != nil {
		dev.Release()
		return 0, "", fmt.Errorf("%w: %w", ErrCannotCreateQueue, err)
	}

	d := &device{
		handle:  handles.nextHandle(),
		dev:     dev,
		queue:   q,
		info:    dev.Info(),
		kernels: make(map[Handle]*kernel),
		buffers: make(map[Handle]*buffer),
	}
	c.devices[d.handle] = d

	Logger().Info("compute: device opened", "device", d.handle, "name", d.info.Name, "index", index)
	return d.handle, d.info.Name, nil
}

// CloseDevice releases the device and all kernels and functions still
// open on it. It fails with ErrDeviceBuffersAllocated while any buffer
// is open on the device, leaving the device open.
func (c *Context) CloseDevice(dev Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupDevice(dev)
	if err != nil {
		return err
	}
	if n := len(d.buffers); n > 0 {
		return fmt.Errorf("%w: %d open", ErrDeviceBuffersAllocated, n)
	}
	delete(c.devices, dev)
	kernels := len(d.kernels)
	d.release()

	Logger().Info("compute: device closed", "device", dev, "kernels", kernels)
	return nil
}

// DeviceInfo returns the descriptor of an opened device.
func (c *Context) DeviceInfo(dev Handle) (gpucore.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupDevice(dev)
	if err != nil {
		return gpucore.DeviceInfo{}, err
	}
	return d.info, nil
}
