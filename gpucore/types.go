package gpucore

import "errors"

// Backend errors shared by implementations.
var (
	// ErrNoDevice is returned by OpenDevice when the index is out of range
	// or the backend has no default device.
	ErrNoDevice = errors.New("gpucore: no such device")

	// ErrReleased is returned when an object is used after Release.
	ErrReleased = errors.New("gpucore: object released")
)

// DeviceInfo describes one compute device as reported by the backend.
type DeviceInfo struct {
	// Name is the human readable adapter name.
	Name string

	// RecommendedMaxWorkingSetSize is the approximate number of bytes the
	// device can use without degrading performance.
	RecommendedMaxWorkingSetSize int64

	// MaxTransferRate is the host to device transfer rate in bytes per
	// second, or 0 when unknown.
	MaxTransferRate int64

	// HasUnifiedMemory reports whether the device shares memory with the host.
	HasUnifiedMemory bool
}

// Size is a 3D extent used for grid and thread-group dimensions.
type Size struct {
	Width, Height, Depth int
}

// Count returns the number of elements covered by s.
func (s Size) Count() int {
	return s.Width * s.Height * s.Depth
}

// CompileOptions controls kernel compilation.
type CompileOptions struct {
	// FastMath allows the compiler to relax IEEE-754 semantics.
	FastMath bool

	// LanguageVersion selects the target language revision, e.g. "1.3".
	// Empty means the backend default.
	LanguageVersion string
}
