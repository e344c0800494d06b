package backend

import "errors"

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend names used by the native HAL backends.
const (
	Metal    = "metal"
	Vulkan   = "vulkan"
	DX12     = "dx12"
	GLES     = "gles"
	Software = "software"
)
