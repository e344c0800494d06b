package compute

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compute/gpucore"
)

// Run states. Running moves to Completed on the backend's completion
// goroutine or to Released when the caller closes it first. The side
// that finds the other transition already made moves the run to Removed
// and deletes it from the tracker.
const (
	runRunning int32 = iota
	runCompleted
	runReleased
	runRemoved
)

// run is one submitted dispatch.
type run struct {
	handle   Handle
	device   Handle
	cmd      gpucore.CommandBuffer
	pipeline gpucore.PipelineState

	state atomic.Int32
	// done is closed once the backend has finished the work and the
	// pipeline has been released.
	done chan struct{}
}

func newRun(h, dev Handle) *run {
	return &run{handle: h, device: dev, done: make(chan struct{})}
}

// runTracker is the table of runs that have not been both completed and
// closed. It is shared by caller goroutines and backend completion
// goroutines.
type runTracker struct {
	mu   sync.Mutex
	runs map[Handle]*run
}

func (t *runTracker) add(r *run) {
	t.mu.Lock()
	t.runs[r.handle] = r
	t.mu.Unlock()
}

func (t *runTracker) get(h Handle) *run {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs[h]
}

func (t *runTracker) remove(r *run) {
	t.mu.Lock()
	delete(t.runs, r.handle)
	t.mu.Unlock()
}

func (t *runTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, r := range t.runs {
		if r.state.Load() == runRunning {
			n++
		}
	}
	return n
}

// complete is the backend completion handler for r. It runs exactly once
// per run, on a goroutine owned by the backend.
func (t *runTracker) complete(r *run) {
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	for {
		switch r.state.Load() {
		case runRunning:
			if r.state.CompareAndSwap(runRunning, runCompleted) {
				Logger().Debug("compute: run completed", "run", r.handle)
				close(r.done)
				return
			}
		case runReleased:
			if r.state.CompareAndSwap(runReleased, runRemoved) {
				t.remove(r)
				Logger().Debug("compute: run completed and removed", "run", r.handle)
				close(r.done)
				return
			}
		default:
			return
		}
	}
}

// close releases the run with handle h, blocking until it completes.
func (t *runTracker) close(h Handle) error {
	r := t.get(h)
	if r == nil {
		return fmt.Errorf("%w: %d", ErrRunNotFound, h)
	}
	for {
		switch r.state.Load() {
		case runRunning:
			if r.state.CompareAndSwap(runRunning, runReleased) {
				<-r.done
				return nil
			}
		case runCompleted:
			if r.state.CompareAndSwap(runCompleted, runRemoved) {
				t.remove(r)
				return nil
			}
		default:
			// Already released by another close.
			return fmt.Errorf("%w: %d", ErrRunNotFound, h)
		}
	}
}

// drain waits for every tracked run to complete and empties the tracker.
func (t *runTracker) drain() {
	t.mu.Lock()
	runs := make([]*run, 0, len(t.runs))
	for _, r := range t.runs {
		runs = append(runs, r)
	}
	t.mu.Unlock()

	for _, r := range runs {
		<-r.done
	}

	t.mu.Lock()
	clear(t.runs)
	t.mu.Unlock()
}

// CloseRun releases a run. If the run is still executing, CloseRun blocks
// until the backend reports completion. Closing the same run twice, or
// while another CloseRun for it is waiting, fails with ErrRunNotFound.
func (c *Context) CloseRun(h Handle) error {
	return c.runs.close(h)
}

// RunStatus reports whether the run is still executing. It never blocks.
func (c *Context) RunStatus(h Handle) (running bool, err error) {
	r := c.runs.get(h)
	if r == nil {
		return false, fmt.Errorf("%w: %d", ErrRunNotFound, h)
	}
	switch r.state.Load() {
	case runRunning:
		return true, nil
	case runCompleted:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrRunNotFound, h)
	}
}
