package compute

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, Success},
		{"sentinel", ErrRunNotFound, CodeRunNotFound},
		{"wrapped", fmt.Errorf("%w: 42", ErrBufferNotFound), CodeBufferNotFound},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("%w: x", ErrDeviceBuffersAllocated)), CodeDeviceBuffersAllocated},
		{"compile error", &CompileError{Diagnostic: "bad"}, CodeFailedToCompile},
		{"legacy", ErrNotReadyToRun, CodeNotReadyToRun},
		{"foreign", errors.New("boom"), codeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeRanges(t *testing.T) {
	legacy := []*Error{
		ErrCannotCreateDevice, ErrCannotCreateQueue, ErrNotReadyToCompile,
		ErrFailedToCompile, ErrFailedToFindFunction, ErrNotReadyToCompute,
		ErrFailedToMakeInput, ErrFailedToMakeOutput, ErrCannotCreateCmdBuffer,
		ErrCannotCreateEncoder, ErrCannotCreatePipeline, ErrIncorrectOutputCount,
		ErrNotReadyToRetrieve, ErrUnsupportedInputFormat, ErrUnsupportedOutputFormat,
		ErrNotReadyToRun,
	}
	object := []*Error{
		ErrDeviceNotFound, ErrKernelNotFound, ErrFunctionNotFound,
		ErrCouldNotMakeBuffer, ErrBufferNotFound, ErrRunNotFound,
		ErrDeviceBuffersAllocated, ErrContextClosed, ErrInvalidArgument,
		ErrBackendNotAvailable,
	}

	seen := map[Code]string{}
	check := func(e *Error, lo, hi Code) {
		if e.Code < lo || e.Code > hi {
			t.Errorf("%v: code %d outside [%d, %d]", e, e.Code, lo, hi)
		}
		if other, dup := seen[e.Code]; dup {
			t.Errorf("code %d used by %q and %q", e.Code, other, e.Error())
		}
		seen[e.Code] = e.Error()
	}
	for _, e := range legacy {
		check(e, -99, -1)
	}
	for _, e := range object {
		check(e, -1099, -1000)
	}
}

func TestCompileErrorIs(t *testing.T) {
	var err error = &CompileError{Diagnostic: "line 1: expected ')'"}
	if !errors.Is(err, ErrFailedToCompile) {
		t.Error("CompileError does not match ErrFailedToCompile")
	}
	var ce *CompileError
	if !errors.As(fmt.Errorf("wrap: %w", err), &ce) || ce.Diagnostic == "" {
		t.Error("errors.As(*CompileError) failed")
	}
}
