package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// commandBuffer records one compute pass and tracks it until the queue
// reports completion.
type commandBuffer struct {
	dev        *device
	enc        hal.CommandEncoder
	cmd        hal.CommandBuffer
	bindGroups []hal.BindGroup
	handlers   []func()
	committed  bool
	done       chan struct{}
}

func newCommandBuffer(d *device) *commandBuffer {
	return &commandBuffer{dev: d, done: make(chan struct{})}
}

func (c *commandBuffer) NewComputeEncoder() (gpucore.ComputeEncoder, error) {
	if c.enc != nil {
		return nil, errors.New("native: command buffer already has an encoder")
	}
	enc, err := c.dev.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "compute"})
	if err != nil {
		return nil, fmt.Errorf("command encoder: %w", err)
	}
	if err := enc.BeginEncoding("compute"); err != nil {
		enc.Destroy()
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	c.enc = enc
	return &computeEncoder{cb: c, slots: make(map[int]*buffer)}, nil
}

func (c *commandBuffer) AddCompletedHandler(fn func()) {
	c.handlers = append(c.handlers, fn)
}

// Commit submits the encoded pass. Completion handlers run on the device's
// watcher goroutine.
func (c *commandBuffer) Commit() error {
	if c.cmd == nil {
		return ErrNothingEncoded
	}
	if c.committed {
		return errors.New("native: command buffer already committed")
	}
	idx, err := c.dev.submit(c.cmd)
	if err != nil {
		c.destroy()
		return fmt.Errorf("submit: %w", err)
	}
	c.committed = true
	if !c.dev.watcher.enqueue(idx, c) {
		// Device is shutting down: finish inline.
		if err := c.dev.hal.WaitIdle(); err != nil {
			slogger().Warn("native: wait idle failed", "error", err)
		}
		c.finish()
	}
	return nil
}

// WaitUntilCompleted returns immediately for a buffer that was never
// committed.
func (c *commandBuffer) WaitUntilCompleted() {
	if !c.committed {
		return
	}
	<-c.done
}

// finish releases the HAL objects and runs the handlers. Called once by the
// watcher after the submission has completed.
func (c *commandBuffer) finish() {
	c.destroy()
	for _, fn := range c.handlers {
		fn()
	}
	close(c.done)
}

func (c *commandBuffer) destroy() {
	if c.cmd != nil {
		c.dev.hal.FreeCommandBuffer(c.cmd)
		c.cmd = nil
	}
	if c.enc != nil {
		c.enc.Destroy()
		c.enc = nil
	}
	for _, bg := range c.bindGroups {
		c.dev.hal.DestroyBindGroup(bg)
	}
	c.bindGroups = nil
}

// dispatch is one recorded DispatchThreadgroups call.
type dispatch struct {
	pipeline *pipeline
	slots    map[int]*buffer
	groups   uint32
}

// computeEncoder records dispatches and replays them into a HAL compute
// pass at EndEncoding, once every binding is known.
type computeEncoder struct {
	cb         *commandBuffer
	pipeline   *pipeline
	slots      map[int]*buffer
	dispatches []dispatch
	err        error
}

func (e *computeEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *computeEncoder) SetPipelineState(p gpucore.PipelineState) {
	np, ok := p.(*pipeline)
	if !ok || np.dev != e.cb.dev {
		e.fail(fmt.Errorf("set pipeline: %w", ErrForeignObject))
		return
	}
	e.pipeline = np
}

func (e *computeEncoder) SetBuffer(buf gpucore.Buffer, index int) {
	nb, ok := buf.(*buffer)
	if !ok || nb.dev != e.cb.dev {
		e.fail(fmt.Errorf("set buffer %d: %w", index, ErrForeignObject))
		return
	}
	e.slots[index] = nb
}

// DispatchThreadgroups records a 1-D dispatch. WGSL fixes the workgroup size
// in the shader, so when threadsPerGroup differs from it the group count is
// recomputed to cover the same number of threads.
func (e *computeEncoder) DispatchThreadgroups(groups, threadsPerGroup gpucore.Size) {
	if e.pipeline == nil {
		e.fail(errors.New("dispatch: no pipeline state set"))
		return
	}
	n := groups.Count()
	if wg := e.pipeline.threads(); threadsPerGroup.Count() != wg {
		total := groups.Count() * threadsPerGroup.Count()
		n = (total + wg - 1) / wg
	}
	if limit := e.cb.dev.limits.MaxComputeWorkgroupsPerDimension; limit > 0 && n > int(limit) {
		e.fail(fmt.Errorf("dispatch: %d workgroups exceeds device limit %d", n, limit))
		return
	}
	slots := make(map[int]*buffer, len(e.slots))
	for i, b := range e.slots {
		slots[i] = b
	}
	e.dispatches = append(e.dispatches, dispatch{pipeline: e.pipeline, slots: slots, groups: uint32(n)})
}

func (e *computeEncoder) EndEncoding() error {
	c := e.cb
	if e.err == nil {
		e.err = e.encode()
	}
	if e.err != nil {
		c.enc.DiscardEncoding()
		c.destroy()
		return e.err
	}
	cmd, err := c.enc.EndEncoding()
	if err != nil {
		c.destroy()
		return fmt.Errorf("end encoding: %w", err)
	}
	c.cmd = cmd
	return nil
}

func (e *computeEncoder) encode() error {
	c := e.cb
	for _, d := range e.dispatches {
		bg, err := e.bindGroup(d)
		if err != nil {
			return err
		}
		c.bindGroups = append(c.bindGroups, bg)

		pass := c.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: d.pipeline.fn.name})
		pass.SetPipeline(d.pipeline.compute)
		pass.SetBindGroup(0, bg, nil)
		if d.groups > 0 {
			pass.Dispatch(d.groups, 1, 1)
		}
		pass.End()
	}
	return nil
}

// bindGroup binds slot i to @binding(i) of group 0 for every binding the
// entry point's module declares.
func (e *computeEncoder) bindGroup(d dispatch) (hal.BindGroup, error) {
	layout := d.pipeline.fn.lib.bindings
	entries := make([]gputypes.BindGroupEntry, 0, len(layout))
	for _, l := range layout {
		buf, ok := d.slots[int(l.Binding)]
		if !ok {
			return nil, fmt.Errorf("dispatch %q: no buffer for binding %d", d.pipeline.fn.name, l.Binding)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: l.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.hal.NativeHandle(),
				Size:   buf.size,
			},
		})
	}
	bg, err := e.cb.dev.hal.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   d.pipeline.fn.name,
		Layout:  d.pipeline.bgl,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group: %w", err)
	}
	return bg, nil
}
