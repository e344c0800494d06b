package compute

import (
	"errors"
	"fmt"
)

// Code is the numeric result code reported to host callers.
// Zero is success; every failure is negative.
//
// Legacy single-slot pipeline codes occupy -1 to -99. Object API codes
// start at -1000.
type Code int64

// Legacy pipeline codes.
const (
	Success                    Code = 0
	CodeCannotCreateDevice     Code = -1
	CodeCannotCreateQueue      Code = -2
	CodeNotReadyToCompile      Code = -3
	CodeFailedToCompile        Code = -4
	CodeFailedToFindFunction   Code = -5
	CodeNotReadyToCompute      Code = -6
	CodeFailedToMakeInput      Code = -7
	CodeFailedToMakeOutput     Code = -8
	CodeCannotCreateCmdBuffer  Code = -9
	CodeCannotCreateEncoder    Code = -10
	CodeCannotCreatePipeline   Code = -11
	CodeIncorrectOutputCount   Code = -12
	CodeNotReadyToRetrieve     Code = -13
	CodeUnsupportedInputFormat Code = -14
	CodeUnsupportedOutput      Code = -15
	CodeNotReadyToRun          Code = -16
)

// Object API codes.
const (
	CodeDeviceNotFound         Code = -1000
	CodeKernelNotFound         Code = -1001
	CodeFunctionNotFound       Code = -1002
	CodeCouldNotMakeBuffer     Code = -1003
	CodeBufferNotFound         Code = -1004
	CodeRunNotFound            Code = -1005
	CodeDeviceBuffersAllocated Code = -1006
	CodeContextClosed          Code = -1007
	CodeInvalidArgument        Code = -1008
	CodeBackendNotAvailable    Code = -1009
	codeUnknown                Code = -1099
)

// Error is a failure with a stable numeric code.
// Sentinel values are compared with errors.Is.
type Error struct {
	Code Code
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(code Code, msg string) *Error {
	return &Error{Code: code, msg: "compute: " + msg}
}

// Legacy pipeline errors.
var (
	ErrCannotCreateDevice      = newError(CodeCannotCreateDevice, "cannot create device")
	ErrCannotCreateQueue       = newError(CodeCannotCreateQueue, "cannot create command queue")
	ErrNotReadyToCompile       = newError(CodeNotReadyToCompile, "not ready to compile")
	ErrFailedToCompile         = newError(CodeFailedToCompile, "failed to compile")
	ErrFailedToFindFunction    = newError(CodeFailedToFindFunction, "failed to find function")
	ErrNotReadyToCompute       = newError(CodeNotReadyToCompute, "not ready to compute")
	ErrFailedToMakeInput       = newError(CodeFailedToMakeInput, "failed to make input buffer")
	ErrFailedToMakeOutput      = newError(CodeFailedToMakeOutput, "failed to make output buffer")
	ErrCannotCreateCmdBuffer   = newError(CodeCannotCreateCmdBuffer, "cannot create command buffer")
	ErrCannotCreateEncoder     = newError(CodeCannotCreateEncoder, "cannot create command encoder")
	ErrCannotCreatePipeline    = newError(CodeCannotCreatePipeline, "cannot create pipeline state")
	ErrIncorrectOutputCount    = newError(CodeIncorrectOutputCount, "incorrect output count")
	ErrNotReadyToRetrieve      = newError(CodeNotReadyToRetrieve, "not ready to retrieve")
	ErrUnsupportedInputFormat  = newError(CodeUnsupportedInputFormat, "unsupported input format")
	ErrUnsupportedOutputFormat = newError(CodeUnsupportedOutput, "unsupported output format")
	ErrNotReadyToRun           = newError(CodeNotReadyToRun, "not ready to run")
)

// Object API errors.
var (
	ErrDeviceNotFound         = newError(CodeDeviceNotFound, "device not found")
	ErrKernelNotFound         = newError(CodeKernelNotFound, "kernel not found")
	ErrFunctionNotFound       = newError(CodeFunctionNotFound, "function not found")
	ErrCouldNotMakeBuffer     = newError(CodeCouldNotMakeBuffer, "could not make buffer")
	ErrBufferNotFound         = newError(CodeBufferNotFound, "buffer not found")
	ErrRunNotFound            = newError(CodeRunNotFound, "run not found")
	ErrDeviceBuffersAllocated = newError(CodeDeviceBuffersAllocated, "device has buffers allocated")
	ErrContextClosed          = newError(CodeContextClosed, "context closed")
	ErrInvalidArgument        = newError(CodeInvalidArgument, "invalid argument")
	ErrBackendNotAvailable    = newError(CodeBackendNotAvailable, "no backend available")
)

// CompileError carries the compiler diagnostic of a failed compilation.
// It matches ErrFailedToCompile with errors.Is.
type CompileError struct {
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compute: failed to compile: %s", e.Diagnostic)
}

// Unwrap returns ErrFailedToCompile.
func (e *CompileError) Unwrap() error { return ErrFailedToCompile }

// CodeOf returns the result code for err: Success for nil, the code of
// the first *Error in the chain otherwise. Errors from outside this
// package map to an unspecified negative code.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codeUnknown
}
