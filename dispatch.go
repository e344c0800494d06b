package compute

import (
	"fmt"

	"github.com/gogpu/compute/gpucore"
)

// Grid is the 1-D tiling of an element count into thread-groups.
type Grid struct {
	Groups          gpucore.Size
	ThreadsPerGroup gpucore.Size
}

// ComputeGrid tiles count elements into thread-groups of
// width*(maxThreads/width) threads. The last group may extend past count;
// kernels bound-check their own invocation index.
func ComputeGrid(count, width, maxThreads int) Grid {
	if width < 1 {
		width = 1
	}
	rows := maxThreads / width
	if rows < 1 {
		rows = 1
	}
	groupSize := width * rows

	groups := 0
	if count > 0 {
		groups = (count + groupSize - 1) / groupSize
	}
	return Grid{
		Groups:          gpucore.Size{Width: groups, Height: 1, Depth: 1},
		ThreadsPerGroup: gpucore.Size{Width: groupSize, Height: 1, Depth: 1},
	}
}

// Submit dispatches fn over count elements with bufs bound to argument
// slots in order, and returns a run handle without waiting for the work
// to finish. Every handle is resolved before anything is sent to the
// backend; on failure no run is created.
func (c *Context) Submit(dev, kern, fn Handle, bufs []Handle, count int) (Handle, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: negative element count %d", ErrInvalidArgument, count)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d, k, err := c.lookupKernel(dev, kern)
	if err != nil {
		return 0, err
	}
	f, ok := k.functions[fn]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrFunctionNotFound, fn)
	}
	bound := make([]gpucore.Buffer, len(bufs))
	for i, h := range bufs {
		b, ok := d.buffers[h]
		if !ok {
			return 0, fmt.Errorf("%w: %d (slot %d)", ErrBufferNotFound, h, i)
		}
		bound[i] = b.buf
	}

	pipeline, err := d.dev.NewPipelineState(f.fn)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrCannotCreatePipeline, f.name, err)
	}
	cmd, err := d.queue.NewCommandBuffer()
	if err != nil {
		pipeline.Release()
		return 0, fmt.Errorf("%w: %w", ErrCannotCreateCmdBuffer, err)
	}
	enc, err := cmd.NewComputeEncoder()
	if err != nil {
		pipeline.Release()
		return 0, fmt.Errorf("%w: %w", ErrCannotCreateEncoder, err)
	}

	grid := ComputeGrid(count, pipeline.ExecutionWidth(), pipeline.MaxTotalThreadsPerThreadgroup())
	enc.SetPipelineState(pipeline)
	for i, b := range bound {
		enc.SetBuffer(b, i)
	}
	enc.DispatchThreadgroups(grid.Groups, grid.ThreadsPerGroup)
	if err := enc.EndEncoding(); err != nil {
		pipeline.Release()
		return 0, fmt.Errorf("%w: %w", ErrCannotCreateEncoder, err)
	}

	r := newRun(handles.nextHandle(), dev)
	r.cmd = cmd
	r.pipeline = pipeline
	cmd.AddCompletedHandler(func() { c.runs.complete(r) })

	// Tracked before commit: the completion handler may fire at once.
	c.runs.add(r)
	if err := cmd.Commit(); err != nil {
		c.runs.remove(r)
		pipeline.Release()
		return 0, fmt.Errorf("%w: commit: %w", ErrCannotCreateCmdBuffer, err)
	}

	Logger().Debug("compute: run submitted",
		"run", r.handle, "function", f.name, "count", count,
		"groups", grid.Groups.Width, "threads", grid.ThreadsPerGroup.Width)
	return r.handle, nil
}
