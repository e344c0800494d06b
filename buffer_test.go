package compute

import (
	"bytes"
	"testing"

	"github.com/gogpu/compute/internal/fakegpu"
)

func TestOpenBuffer(t *testing.T) {
	ctx, _ := newTestContext(t)
	dev, _, _ := ctx.OpenDevice(-1)

	t.Run("zero filled", func(t *testing.T) {
		h, data, err := ctx.OpenBuffer(dev, 8, nil)
		if err != nil {
			t.Fatalf("OpenBuffer() error = %v", err)
		}
		defer ctx.CloseBuffer(dev, h)
		if !bytes.Equal(data, make([]byte, 8)) {
			t.Errorf("contents = %v, want zeros", data)
		}
	})

	t.Run("copied from source", func(t *testing.T) {
		src := []byte{9, 8, 7, 6, 5}
		h, data, err := ctx.OpenBuffer(dev, 4, src)
		if err != nil {
			t.Fatalf("OpenBuffer() error = %v", err)
		}
		defer ctx.CloseBuffer(dev, h)
		if !bytes.Equal(data, []byte{9, 8, 7, 6}) {
			t.Errorf("contents = %v", data)
		}
		src[0] = 0
		if data[0] != 9 {
			t.Error("buffer aliases the source slice")
		}
	})

	t.Run("host writes visible", func(t *testing.T) {
		h, data, err := ctx.OpenBuffer(dev, 4, nil)
		if err != nil {
			t.Fatalf("OpenBuffer() error = %v", err)
		}
		defer ctx.CloseBuffer(dev, h)
		data[2] = 42
		view, err := ctx.Buffer(dev, h)
		if err != nil || view[2] != 42 {
			t.Errorf("Buffer() = %v, %v", view, err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		h, data, err := ctx.OpenBuffer(dev, 0, nil)
		if err != nil {
			t.Fatalf("OpenBuffer(0) error = %v", err)
		}
		defer ctx.CloseBuffer(dev, h)
		if len(data) != 0 {
			t.Errorf("len = %d", len(data))
		}
	})
}

func TestOpenBufferErrors(t *testing.T) {
	ctx, fake := newTestContext(t)
	dev, _, _ := ctx.OpenDevice(-1)

	_, _, err := ctx.OpenBuffer(dev, -1, nil)
	wantCode(t, err, CodeInvalidArgument)
	_, _, err = ctx.OpenBuffer(dev, 8, []byte{1, 2})
	wantCode(t, err, CodeInvalidArgument)
	_, _, err = ctx.OpenBuffer(777, 8, nil)
	wantCode(t, err, CodeDeviceNotFound)

	fake.Fail(fakegpu.StageBuffer, true)
	_, _, err = ctx.OpenBuffer(dev, 8, nil)
	wantCode(t, err, CodeCouldNotMakeBuffer)
}

func TestCloseBuffer(t *testing.T) {
	ctx, _ := newTestContext(t)
	dev, _, _ := ctx.OpenDevice(-1)
	h, _, _ := ctx.OpenBuffer(dev, 4, nil)

	wantCode(t, ctx.CloseBuffer(1, h), CodeDeviceNotFound)
	wantCode(t, ctx.CloseBuffer(dev, 1), CodeBufferNotFound)

	if err := ctx.CloseBuffer(dev, h); err != nil {
		t.Fatalf("CloseBuffer() error = %v", err)
	}
	wantCode(t, ctx.CloseBuffer(dev, h), CodeBufferNotFound)
	_, err := ctx.Buffer(dev, h)
	wantCode(t, err, CodeBufferNotFound)
}

// A buffer belongs to the device it was opened on.
func TestBufferOwnedByDevice(t *testing.T) {
	ctx, _ := newTestContext(t)
	dev1, _, _ := ctx.OpenDevice(-1)
	dev2, _, _ := ctx.OpenDevice(-1)
	h, _, _ := ctx.OpenBuffer(dev1, 4, nil)

	wantCode(t, ctx.CloseBuffer(dev2, h), CodeBufferNotFound)
	if err := ctx.CloseDevice(dev2); err != nil {
		t.Errorf("CloseDevice(dev2) error = %v", err)
	}
	wantCode(t, ctx.CloseDevice(dev1), CodeDeviceBuffersAllocated)
}
