package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// bufferUsage lets one buffer serve as any kernel binding and stay mapped.
const bufferUsage = gputypes.BufferUsageStorage |
	gputypes.BufferUsageUniform |
	gputypes.BufferUsageMapRead |
	gputypes.BufferUsageMapWrite |
	gputypes.BufferUsageCopySrc |
	gputypes.BufferUsageCopyDst

// buffer is a persistently mapped HAL buffer. Contents aliases the mapping,
// so host writes are visible to the next dispatch and kernel writes are
// visible after completion.
type buffer struct {
	dev      *device
	hal      hal.Buffer
	size     uint64
	contents []byte
	released bool
}

// allocSize rounds length up to the 4-byte binding granularity, with a
// 4-byte minimum so empty buffers are still bindable.
func allocSize(length int) uint64 {
	n := uint64(max(length, 4))
	return (n + 3) &^ 3
}

func newBuffer(d *device, length int, contents []byte) (*buffer, error) {
	if length < 0 {
		return nil, fmt.Errorf("buffer: negative length %d", length)
	}
	size := allocSize(length)
	if limit := d.limits.MaxBufferSize; limit > 0 && size > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrBufferTooLarge, size, limit)
	}

	hb, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "compute buffer",
		Size:  size,
		Usage: bufferUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	mapping, err := d.hal.MapBuffer(hb, 0, size)
	if err != nil {
		d.hal.DestroyBuffer(hb)
		return nil, fmt.Errorf("map buffer: %w", err)
	}
	if !mapping.IsCoherent {
		slogger().Warn("native: buffer mapping is not coherent", "device", d.info.Name, "size", size)
	}

	b := &buffer{
		dev:      d,
		hal:      hb,
		size:     size,
		contents: unsafe.Slice((*byte)(mapping.Ptr), size)[:length:length],
	}
	n := copy(b.contents, contents)
	clear(b.contents[n:])
	return b, nil
}

func (b *buffer) Contents() []byte { return b.contents }

func (b *buffer) Length() int { return len(b.contents) }

// Release unmaps and destroys the buffer. Contents must not be used after.
func (b *buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if err := b.dev.hal.UnmapBuffer(b.hal); err != nil {
		slogger().Debug("native: unmap failed", "error", err)
	}
	b.dev.hal.DestroyBuffer(b.hal)
	b.contents = nil
}

var _ gpucore.Buffer = (*buffer)(nil)
