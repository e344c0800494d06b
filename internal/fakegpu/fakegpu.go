// Package fakegpu is an in-memory gpucore backend for tests.
//
// Kernel sources are real WGSL: they are parsed and lowered with naga so
// that syntax errors and entry point names behave like a real compiler.
// Execution is simulated by Go functions registered per entry point name,
// called once per dispatched thread. Threadgroups run concurrently on a
// shared worker pool, so kernels must only write their own elements.
//
// Completion can be delivered asynchronously (the default), inline during
// Commit, or held until the test calls CompletePending.
package fakegpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/compute/internal/parallel"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// KernelFunc simulates one thread of a compute entry point. index is the
// global invocation index; bufs holds the bound buffers by slot.
type KernelFunc func(index int, bufs [][]byte)

// Completion selects how committed command buffers complete.
type Completion int

const (
	// CompleteAsync completes each command buffer on its own goroutine.
	CompleteAsync Completion = iota
	// CompleteInline completes the command buffer inside Commit.
	CompleteInline
	// CompleteManual holds completions until CompletePending.
	CompleteManual
)

// Stage names a backend call that can be made to fail.
type Stage int

const (
	StageOpenDevice Stage = iota
	StageQueue
	StageBuffer
	StagePipeline
	StageCommandBuffer
	StageEncoder
	StageCommit
)

var groupPool = sync.OnceValue(func() *parallel.Pool { return parallel.NewPool(0) })

// ErrInjected is returned by a stage made to fail with Fail.
var ErrInjected = errors.New("fakegpu: injected failure")

// Dispatch is one recorded DispatchThreadgroups call.
type Dispatch struct {
	Function        string
	Groups, Threads gpucore.Size
	Slots           int
}

// Backend is a fake gpucore.Backend. The zero value is not usable; call New.
type Backend struct {
	mu         sync.Mutex
	devices    []gpucore.DeviceInfo
	kernels    map[string]KernelFunc
	width      int
	maxThreads int
	mode       Completion
	failing    map[Stage]bool
	pending    []*commandBuffer
	dispatches []Dispatch
	compiled   []gpucore.CompileOptions

	submits atomic.Int64
	live    atomic.Int64
	logger  atomic.Pointer[slog.Logger]
}

// New returns a backend with one device named "Fake GPU", pipelines of
// width 32 and 256 threads per group, and asynchronous completion.
func New() *Backend {
	return &Backend{
		devices: []gpucore.DeviceInfo{{
			Name:                         "Fake GPU",
			RecommendedMaxWorkingSetSize: 1 << 30,
			HasUnifiedMemory:             true,
		}},
		kernels:    make(map[string]KernelFunc),
		width:      32,
		maxThreads: 256,
		failing:    make(map[Stage]bool),
	}
}

// Name implements gpucore.Backend.
func (b *Backend) Name() string { return "fake" }

// SetLogger records the logger handed down by compute.SetLogger.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger.Store(l) }

// Logger returns the last logger passed to SetLogger.
func (b *Backend) Logger() *slog.Logger { return b.logger.Load() }

// SetDevices replaces the device list.
func (b *Backend) SetDevices(infos ...gpucore.DeviceInfo) {
	b.mu.Lock()
	b.devices = infos
	b.mu.Unlock()
}

// SetKernel registers the simulation of entry point name.
func (b *Backend) SetKernel(name string, fn KernelFunc) {
	b.mu.Lock()
	b.kernels[name] = fn
	b.mu.Unlock()
}

// SetPipelineLimits sets the execution width and thread limit reported
// by new pipeline states.
func (b *Backend) SetPipelineLimits(width, maxThreads int) {
	b.mu.Lock()
	b.width, b.maxThreads = width, maxThreads
	b.mu.Unlock()
}

// SetCompletion selects how command buffers complete.
func (b *Backend) SetCompletion(m Completion) {
	b.mu.Lock()
	b.mode = m
	b.mu.Unlock()
}

// Fail makes stage return ErrInjected until Fail(stage, false).
func (b *Backend) Fail(stage Stage, fail bool) {
	b.mu.Lock()
	b.failing[stage] = fail
	b.mu.Unlock()
}

// CompletePending completes every held command buffer in submission order
// on the calling goroutine and returns how many there were.
func (b *Backend) CompletePending() int {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, cb := range pending {
		cb.execute()
	}
	return len(pending)
}

// Pending returns the number of held command buffers.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// CompileOptions returns the options of every NewLibrary call so far.
func (b *Backend) CompileOptions() []gpucore.CompileOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]gpucore.CompileOptions(nil), b.compiled...)
}

// Submits returns the number of committed command buffers.
func (b *Backend) Submits() int { return int(b.submits.Load()) }

// Live returns the number of created and not yet released objects.
func (b *Backend) Live() int { return int(b.live.Load()) }

// Dispatches returns the dispatches executed so far.
func (b *Backend) Dispatches() []Dispatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Dispatch(nil), b.dispatches...)
}

func (b *Backend) fails(s Stage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing[s] {
		return ErrInjected
	}
	return nil
}

// Devices implements gpucore.Backend.
func (b *Backend) Devices() ([]gpucore.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]gpucore.DeviceInfo(nil), b.devices...), nil
}

// OpenDevice implements gpucore.Backend.
func (b *Backend) OpenDevice(index int) (gpucore.Device, error) {
	if err := b.fails(StageOpenDevice); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 {
		index = 0
	}
	if index >= len(b.devices) {
		return nil, gpucore.ErrNoDevice
	}
	b.live.Add(1)
	return &device{b: b, info: b.devices[index]}, nil
}

type device struct {
	b    *Backend
	info gpucore.DeviceInfo
}

func (d *device) Info() gpucore.DeviceInfo { return d.info }

func (d *device) NewQueue() (gpucore.Queue, error) {
	if err := d.b.fails(StageQueue); err != nil {
		return nil, err
	}
	d.b.live.Add(1)
	return &queue{b: d.b}, nil
}

func (d *device) NewLibrary(source string, opts gpucore.CompileOptions) (gpucore.Library, error) {
	d.b.mu.Lock()
	d.b.compiled = append(d.b.compiled, opts)
	d.b.mu.Unlock()

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, err
	}
	lib := &library{b: d.b}
	for _, ep := range module.EntryPoints {
		if ep.Stage == ir.StageCompute {
			lib.names = append(lib.names, ep.Name)
		}
	}
	d.b.live.Add(1)
	return lib, nil
}

func (d *device) NewBuffer(length int, contents []byte) (gpucore.Buffer, error) {
	if err := d.b.fails(StageBuffer); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	copy(data, contents)
	d.b.live.Add(1)
	return &buffer{b: d.b, data: data}, nil
}

func (d *device) NewPipelineState(fn gpucore.Function) (gpucore.PipelineState, error) {
	if err := d.b.fails(StagePipeline); err != nil {
		return nil, err
	}
	d.b.mu.Lock()
	p := &pipeline{b: d.b, name: fn.Name(), width: d.b.width, maxThreads: d.b.maxThreads}
	d.b.mu.Unlock()
	d.b.live.Add(1)
	return p, nil
}

func (d *device) Release() { d.b.live.Add(-1) }

type library struct {
	b     *Backend
	names []string
}

func (l *library) Function(name string) (gpucore.Function, bool) {
	for _, n := range l.names {
		if n == name {
			return function(n), true
		}
	}
	return nil, false
}

func (l *library) FunctionNames() []string { return append([]string(nil), l.names...) }
func (l *library) Release()                { l.b.live.Add(-1) }

type function string

func (f function) Name() string { return string(f) }

type buffer struct {
	b    *Backend
	data []byte
}

func (buf *buffer) Contents() []byte { return buf.data }
func (buf *buffer) Length() int      { return len(buf.data) }
func (buf *buffer) Release()         { buf.b.live.Add(-1) }

type pipeline struct {
	b          *Backend
	name       string
	width      int
	maxThreads int
}

func (p *pipeline) ExecutionWidth() int                { return p.width }
func (p *pipeline) MaxTotalThreadsPerThreadgroup() int { return p.maxThreads }
func (p *pipeline) Release()                           { p.b.live.Add(-1) }

type queue struct{ b *Backend }

func (q *queue) NewCommandBuffer() (gpucore.CommandBuffer, error) {
	if err := q.b.fails(StageCommandBuffer); err != nil {
		return nil, err
	}
	return &commandBuffer{b: q.b, done: make(chan struct{})}, nil
}

func (q *queue) Release() { q.b.live.Add(-1) }

type commandBuffer struct {
	b         *Backend
	work      []encoded
	handlers  []func()
	committed bool
	done      chan struct{}
}

type encoded struct {
	pipeline        *pipeline
	bufs            []*buffer
	groups, threads gpucore.Size
}

func (cb *commandBuffer) NewComputeEncoder() (gpucore.ComputeEncoder, error) {
	if err := cb.b.fails(StageEncoder); err != nil {
		return nil, err
	}
	return &encoder{cb: cb}, nil
}

func (cb *commandBuffer) AddCompletedHandler(fn func()) {
	cb.handlers = append(cb.handlers, fn)
}

func (cb *commandBuffer) Commit() error {
	if cb.committed {
		return fmt.Errorf("fakegpu: command buffer committed twice")
	}
	if err := cb.b.fails(StageCommit); err != nil {
		return err
	}
	cb.committed = true
	cb.b.submits.Add(1)

	cb.b.mu.Lock()
	mode := cb.b.mode
	if mode == CompleteManual {
		cb.b.pending = append(cb.b.pending, cb)
	}
	cb.b.mu.Unlock()

	switch mode {
	case CompleteInline:
		cb.execute()
	case CompleteAsync:
		go cb.execute()
	}
	return nil
}

func (cb *commandBuffer) WaitUntilCompleted() { <-cb.done }

// execute runs the recorded dispatches, then the completion handlers.
func (cb *commandBuffer) execute() {
	for _, w := range cb.work {
		cb.b.mu.Lock()
		fn := cb.b.kernels[w.pipeline.name]
		cb.b.dispatches = append(cb.b.dispatches, Dispatch{
			Function: w.pipeline.name,
			Groups:   w.groups,
			Threads:  w.threads,
			Slots:    len(w.bufs),
		})
		cb.b.mu.Unlock()
		if fn == nil {
			continue
		}
		data := make([][]byte, len(w.bufs))
		for i, buf := range w.bufs {
			if buf != nil {
				data[i] = buf.data
			}
		}
		threads := w.threads.Count()
		groupPool().Run(w.groups.Count(), func(g int) {
			for t := range threads {
				fn(g*threads+t, data)
			}
		})
	}
	for _, h := range cb.handlers {
		h()
	}
	close(cb.done)
}

type encoder struct {
	cb   *commandBuffer
	cur  encoded
	open bool
}

func (e *encoder) SetPipelineState(p gpucore.PipelineState) {
	e.cur.pipeline = p.(*pipeline)
	e.open = true
}

func (e *encoder) SetBuffer(buf gpucore.Buffer, index int) {
	for len(e.cur.bufs) <= index {
		e.cur.bufs = append(e.cur.bufs, nil)
	}
	e.cur.bufs[index] = buf.(*buffer)
}

func (e *encoder) DispatchThreadgroups(groups, threadsPerGroup gpucore.Size) {
	e.cur.groups = groups
	e.cur.threads = threadsPerGroup
	e.cb.work = append(e.cb.work, e.cur)
	e.cur.bufs = append([]*buffer(nil), e.cur.bufs...)
}

func (e *encoder) EndEncoding() error {
	if !e.open {
		return fmt.Errorf("fakegpu: no pipeline state set")
	}
	return nil
}
