package compute

import (
	"errors"
	"fmt"
	"sync"
)

// LegacyState is the stage of a Legacy pipeline.
type LegacyState int

// Legacy pipeline stages, in the order they must be reached.
const (
	LegacyUninitialized LegacyState = iota
	LegacyReadyToCompile
	LegacyReadyToCompute
	LegacyReadyToRun
	LegacyReadyToRetrieve
)

var legacyStateNames = [...]string{
	LegacyUninitialized:   "uninitialized",
	LegacyReadyToCompile:  "ready to compile",
	LegacyReadyToCompute:  "ready to compute",
	LegacyReadyToRun:      "ready to run",
	LegacyReadyToRetrieve: "ready to retrieve",
}

func (s LegacyState) String() string {
	if s < 0 || int(s) >= len(legacyStateNames) {
		return fmt.Sprintf("LegacyState(%d)", int(s))
	}
	return legacyStateNames[s]
}

// Legacy is the single-slot pipeline: one device, one kernel function,
// one input and one output buffer, driven through
// Init, Compile, Alloc, Run and Retrieve in that order.
// Each step fails with a not-ready error when called too early.
//
// Legacy is a thin client of a Context; every resource it holds is an
// ordinary handle in that Context.
type Legacy struct {
	ctx *Context

	mu        sync.Mutex
	state     LegacyState
	dev       Handle
	kern      Handle
	fn        Handle
	in, out   Handle
	outCount  int
	outFormat Format
}

// NewLegacy returns an uninitialized pipeline on ctx.
func NewLegacy(ctx *Context) *Legacy {
	return &Legacy{ctx: ctx}
}

// State returns the current stage.
func (l *Legacy) State() LegacyState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Init opens the device at index, negative for the default device.
// Any resources from a previous Init are released first.
func (l *Legacy) Init(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.releaseLocked()
	dev, _, err := l.ctx.OpenDevice(index)
	if err != nil {
		if errors.Is(err, ErrCannotCreateQueue) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCannotCreateDevice, err)
	}
	l.dev = dev
	l.state = LegacyReadyToCompile
	return nil
}

// Release frees everything the pipeline holds and returns it to the
// uninitialized state.
func (l *Legacy) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
	return nil
}

func (l *Legacy) releaseLocked() {
	if l.state == LegacyUninitialized {
		return
	}
	l.closeBuffers()
	if l.kern != 0 {
		_ = l.ctx.CloseKernel(l.dev, l.kern)
	}
	if err := l.ctx.CloseDevice(l.dev); err != nil {
		Logger().Warn("compute: legacy release", "error", err)
	}
	l.dev, l.kern, l.fn = 0, 0, 0
	l.outCount = 0
	l.outFormat = FormatUnknown
	l.state = LegacyUninitialized
}

func (l *Legacy) closeBuffers() {
	for _, h := range []Handle{l.in, l.out} {
		if h != 0 {
			_ = l.ctx.CloseBuffer(l.dev, h)
		}
	}
	l.in, l.out = 0, 0
}

// Compile compiles program and resolves functionName from it. On failure
// the previously compiled function, if any, stays in place.
func (l *Legacy) Compile(program, functionName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state < LegacyReadyToCompile {
		return ErrNotReadyToCompile
	}
	kern, err := l.ctx.Compile(l.dev, program)
	if err != nil {
		return err
	}
	fn, err := l.ctx.ResolveFunction(l.dev, kern, functionName)
	if err != nil {
		_ = l.ctx.CloseKernel(l.dev, kern)
		return fmt.Errorf("%w: %q", ErrFailedToFindFunction, functionName)
	}
	if l.kern != 0 {
		_ = l.ctx.CloseKernel(l.dev, l.kern)
	}
	l.kern, l.fn = kern, fn
	l.state = LegacyReadyToCompute
	return nil
}

// Alloc creates an input buffer holding the first inCount elements of
// input and a zeroed output buffer of outCount elements.
func (l *Legacy) Alloc(inCount int, input []byte, inFormat Format, outCount int, outFormat Format) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state < LegacyReadyToCompute {
		return ErrNotReadyToCompute
	}
	inStride := inFormat.Stride()
	if inStride == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedInputFormat, inFormat)
	}
	outStride := outFormat.Stride()
	if outStride == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedOutputFormat, outFormat)
	}
	if inCount < 0 || outCount < 0 {
		return fmt.Errorf("%w: negative element count", ErrInvalidArgument)
	}
	inBytes := inCount * inStride
	if len(input) < inBytes {
		return fmt.Errorf("%w: input has %d bytes, need %d", ErrInvalidArgument, len(input), inBytes)
	}

	in, _, err := l.ctx.OpenBuffer(l.dev, inBytes, input[:inBytes])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToMakeInput, err)
	}
	out, _, err := l.ctx.OpenBuffer(l.dev, outCount*outStride, nil)
	if err != nil {
		_ = l.ctx.CloseBuffer(l.dev, in)
		return fmt.Errorf("%w: %v", ErrFailedToMakeOutput, err)
	}

	l.closeBuffers()
	l.in, l.out = in, out
	l.outCount = outCount
	l.outFormat = outFormat
	l.state = LegacyReadyToRun
	return nil
}

// Run dispatches the function over count elements with the input buffer
// in slot 0 and the output buffer in slot 1, and waits for it to finish.
func (l *Legacy) Run(count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state < LegacyReadyToRun {
		return ErrNotReadyToRun
	}
	run, err := l.ctx.Submit(l.dev, l.kern, l.fn, []Handle{l.in, l.out}, count)
	if err != nil {
		return err
	}
	if err := l.ctx.CloseRun(run); err != nil {
		return err
	}
	l.state = LegacyReadyToRetrieve
	return nil
}

// Retrieve copies the outCount output elements of the last Run into
// output. outCount must match the count given to Alloc.
func (l *Legacy) Retrieve(outCount int, output []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state < LegacyReadyToRetrieve {
		return ErrNotReadyToRetrieve
	}
	if outCount != l.outCount {
		return fmt.Errorf("%w: got %d, allocated %d", ErrIncorrectOutputCount, outCount, l.outCount)
	}
	n := outCount * l.outFormat.Stride()
	if len(output) < n {
		return fmt.Errorf("%w: output has %d bytes, need %d", ErrInvalidArgument, len(output), n)
	}
	contents, err := l.ctx.Buffer(l.dev, l.out)
	if err != nil {
		return err
	}
	copy(output, contents[:n])
	return nil
}

// OutputFormat returns the output element format given to the last
// successful Alloc, or FormatUnknown before one.
func (l *Legacy) OutputFormat() Format {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state < LegacyReadyToRun {
		return FormatUnknown
	}
	return l.outFormat
}

// CompileError returns the diagnostic of the last failed Compile.
func (l *Legacy) CompileError() string {
	return l.ctx.CompileError()
}
