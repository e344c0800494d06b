package native

import (
	"sync"
	"time"
)

// Poll backoff bounds for the completion watcher.
const (
	minPoll = 50 * time.Microsecond
	maxPoll = 2 * time.Millisecond
)

// submission is a committed command buffer awaiting completion.
type submission struct {
	index uint64
	cb    *commandBuffer
}

// watcher polls the device queue and finishes command buffers whose
// submission index has completed. One goroutine runs per device while work
// is pending.
type watcher struct {
	dev *device

	mu      sync.Mutex
	pending []submission
	running bool
	stopped bool
	idle    *sync.Cond
}

func newWatcher(d *device) *watcher {
	w := &watcher{dev: d}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// enqueue tracks a submitted command buffer. It reports false after stop.
func (w *watcher) enqueue(index uint64, cb *commandBuffer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	w.pending = append(w.pending, submission{index: index, cb: cb})
	if !w.running {
		w.running = true
		go w.run()
	}
	return true
}

func (w *watcher) run() {
	delay := minPoll
	for {
		done := w.dev.completed()

		w.mu.Lock()
		var ready []submission
		kept := w.pending[:0]
		for _, s := range w.pending {
			if s.index <= done {
				ready = append(ready, s)
			} else {
				kept = append(kept, s)
			}
		}
		clear(w.pending[len(kept):])
		w.pending = kept
		w.mu.Unlock()

		for _, s := range ready {
			s.cb.finish()
		}

		w.mu.Lock()
		if len(w.pending) == 0 {
			w.running = false
			w.idle.Broadcast()
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		if len(ready) > 0 {
			delay = minPoll
			continue
		}
		time.Sleep(delay)
		delay = min(delay*2, maxPoll)
	}
}

// stop waits for pending submissions to finish and refuses new ones.
func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for w.running {
		w.idle.Wait()
	}
}
