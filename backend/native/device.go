package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// device is a gpucore.Device over an opened HAL device and its queue.
type device struct {
	hal    hal.Device
	queue  hal.Queue
	info   gpucore.DeviceInfo
	limits gputypes.Limits

	// external devices belong to a gpucontext provider and are never
	// destroyed here.
	external bool

	// submitMu serializes Queue.Submit and Queue.PollCompleted. Devices
	// sharing a queue share the mutex.
	submitMu *sync.Mutex
	watcher  *watcher

	releaseOnce sync.Once
}

var _ gpucore.Device = (*device)(nil)

func newDevice(d hal.Device, q hal.Queue, info gpucore.DeviceInfo, limits gputypes.Limits, external bool) *device {
	dev := &device{
		hal:      d,
		queue:    q,
		info:     info,
		limits:   limits,
		external: external,
		submitMu: new(sync.Mutex),
	}
	dev.watcher = newWatcher(dev)
	return dev
}

func (d *device) Info() gpucore.DeviceInfo { return d.info }

// NewQueue returns a view of the device queue. HAL devices expose a single
// queue, so every view submits to it.
func (d *device) NewQueue() (gpucore.Queue, error) {
	return &queue{dev: d}, nil
}

func (d *device) NewLibrary(source string, opts gpucore.CompileOptions) (gpucore.Library, error) {
	return compileLibrary(d, source, opts)
}

func (d *device) NewBuffer(length int, contents []byte) (gpucore.Buffer, error) {
	return newBuffer(d, length, contents)
}

func (d *device) NewPipelineState(fn gpucore.Function) (gpucore.PipelineState, error) {
	f, ok := fn.(*function)
	if !ok || f.lib.dev != d {
		return nil, fmt.Errorf("pipeline: %w", ErrForeignObject)
	}
	return newPipeline(d, f)
}

// Release waits for in-flight work and destroys the HAL device.
func (d *device) Release() {
	d.releaseOnce.Do(func() {
		d.watcher.stop()
		if err := d.hal.WaitIdle(); err != nil {
			slogger().Warn("native: wait idle failed", "device", d.info.Name, "error", err)
		}
		if !d.external {
			d.hal.Destroy()
		}
		slogger().Debug("native: device released", "device", d.info.Name)
	})
}

// submit hands cmd to the queue and returns its submission index.
func (d *device) submit(cmd hal.CommandBuffer) (uint64, error) {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	return d.queue.Submit([]hal.CommandBuffer{cmd})
}

// completed returns the highest finished submission index.
func (d *device) completed() uint64 {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	return d.queue.PollCompleted()
}

// queue is the gpucore.Queue view of a device queue.
type queue struct {
	dev *device
}

func (q *queue) NewCommandBuffer() (gpucore.CommandBuffer, error) {
	return newCommandBuffer(q.dev), nil
}

func (q *queue) Release() {}
