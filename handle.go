package compute

import "sync/atomic"

// Handle identifies a device, kernel, function, buffer or run.
// Handles are unique across all entity kinds within a process and are
// never reused.
type Handle uint64

// handleBase is the first handle issued. Zero is never a valid handle.
const handleBase = 4242

// handles is shared by every Context in the process.
var handles = handleAllocator{next: handleBase}

type handleAllocator struct {
	next uint64
}

// nextHandle returns a new handle. Safe for concurrent use.
func (a *handleAllocator) nextHandle() Handle {
	return Handle(atomic.AddUint64(&a.next, 1) - 1)
}
