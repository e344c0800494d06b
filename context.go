package compute

import (
	"fmt"
	"sync"

	"github.com/gogpu/compute/backend"
	"github.com/gogpu/compute/gpucore"
)

// contexts tracks live contexts so SetLogger can reach their backends.
var (
	contextsMu sync.Mutex
	contexts   = make(map[*Context]struct{})
)

// Context owns every device, kernel, function, buffer and run opened
// through it, together with the backend they were created on.
//
// All methods are safe for concurrent use. Only CloseRun and Close block
// waiting for the backend.
type Context struct {
	backend gpucore.Backend
	compile gpucore.CompileOptions

	mu      sync.Mutex
	devices map[Handle]*device
	closed  bool

	runs runTracker

	compileErrMu sync.Mutex
	compileErr   string
}

// New creates a Context on the backend chosen by opts, or on the best
// registered backend when none is given.
func New(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := o.backend
	if b == nil {
		if o.backendName != "" {
			b = backend.Get(o.backendName)
			if b == nil {
				return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, o.backendName)
			}
		} else {
			b = backend.Default()
		}
	}
	if b == nil {
		return nil, ErrBackendNotAvailable
	}

	c := &Context{
		backend: b,
		compile: o.compile,
		devices: make(map[Handle]*device),
		runs:    runTracker{runs: make(map[Handle]*run)},
	}
	propagateLogger(b, Logger())

	contextsMu.Lock()
	contexts[c] = struct{}{}
	contextsMu.Unlock()

	Logger().Info("compute: context created", "backend", b.Name())
	return c, nil
}

// BackendName returns the name of the backend this context runs on.
func (c *Context) BackendName() string {
	return c.backend.Name()
}

// Close waits for in-flight runs, then releases every device and
// everything opened on it. Calling Close again returns ErrContextClosed.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrContextClosed
	}
	c.closed = true
	devs := c.devices
	c.devices = nil
	c.mu.Unlock()

	if n := c.runs.pending(); n > 0 {
		Logger().Warn("compute: closing context with runs in flight", "runs", n)
	}
	c.runs.drain()

	for _, d := range devs {
		d.release()
	}

	contextsMu.Lock()
	delete(contexts, c)
	contextsMu.Unlock()

	Logger().Info("compute: context closed", "devices", len(devs))
	return nil
}

// lookupDevice returns the device for h. c.mu must be held.
func (c *Context) lookupDevice(h Handle) (*device, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	d, ok := c.devices[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, h)
	}
	return d, nil
}
