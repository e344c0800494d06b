package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when the HAL instance reports no adapters.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrHALUnavailable is returned when the HAL API is not compiled in or
	// its instance cannot be created.
	ErrHALUnavailable = errors.New("native: HAL backend unavailable")

	// ErrForeignObject is returned when an object from another backend is
	// passed in.
	ErrForeignObject = errors.New("native: object not created by this backend")

	// ErrNothingEncoded is returned by Commit on a command buffer without
	// a finished encoder.
	ErrNothingEncoded = errors.New("native: command buffer has no encoded work")

	// ErrBufferTooLarge is returned when a buffer exceeds the device limit.
	ErrBufferTooLarge = errors.New("native: buffer exceeds device limit")

	// ErrUnsupportedLanguageVersion is returned for an unknown
	// CompileOptions.LanguageVersion.
	ErrUnsupportedLanguageVersion = errors.New("native: unsupported language version")

	// ErrNotHALDevice is returned by FromProvider when the provider's device
	// or queue is not a HAL object.
	ErrNotHALDevice = errors.New("native: provider does not expose a HAL device")
)
