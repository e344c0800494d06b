package gpucore

// Backend enumerates and opens compute devices.
type Backend interface {
	// Name returns the backend identifier (e.g. "vulkan", "software").
	Name() string

	// Devices lists the devices this backend can open, in index order.
	Devices() ([]DeviceInfo, error)

	// OpenDevice opens the device at index. A negative index selects the
	// backend's default device. Returns ErrNoDevice when there is no match.
	OpenDevice(index int) (Device, error)
}

// Device is an opened compute device.
type Device interface {
	// Info returns the descriptor of this device.
	Info() DeviceInfo

	// NewQueue creates a command submission queue.
	NewQueue() (Queue, error)

	// NewLibrary compiles source into a module of entry points.
	// A compilation failure is returned as an error whose text is the
	// compiler diagnostic.
	NewLibrary(source string, opts CompileOptions) (Library, error)

	// NewBuffer allocates length bytes of host-visible memory. When
	// contents is non-nil the buffer is initialized from it, otherwise
	// it is zero-filled.
	NewBuffer(length int, contents []byte) (Buffer, error)

	// NewPipelineState builds an executable pipeline for fn.
	NewPipelineState(fn Function) (PipelineState, error)

	// Release frees the device. Objects created from it must already be
	// released.
	Release()
}

// Library is a compiled kernel module.
type Library interface {
	// Function resolves the entry point called name.
	Function(name string) (Function, bool)

	// FunctionNames lists the compute entry points of the module.
	FunctionNames() []string

	// Release frees the module.
	Release()
}

// Function is a resolved compute entry point.
type Function interface {
	Name() string
}

// Buffer is device memory mapped into the host address space.
type Buffer interface {
	// Contents returns the host view of the buffer. The slice is valid
	// until Release.
	Contents() []byte

	// Length returns the buffer size in bytes.
	Length() int

	// Release frees the buffer.
	Release()
}

// PipelineState is an executable compute pipeline.
type PipelineState interface {
	// ExecutionWidth is the number of threads the hardware schedules
	// together.
	ExecutionWidth() int

	// MaxTotalThreadsPerThreadgroup is the largest thread-group size the
	// pipeline can be dispatched with.
	MaxTotalThreadsPerThreadgroup() int

	// Release frees the pipeline. It must not be called while a committed
	// command buffer still uses it.
	Release()
}

// Queue submits command buffers to a device.
type Queue interface {
	NewCommandBuffer() (CommandBuffer, error)
	Release()
}

// CommandBuffer records work for one submission.
type CommandBuffer interface {
	// NewComputeEncoder starts recording compute commands.
	NewComputeEncoder() (ComputeEncoder, error)

	// AddCompletedHandler registers fn to run once the submitted work has
	// finished. Must be called before Commit.
	AddCompletedHandler(fn func())

	// Commit submits the recorded work for asynchronous execution.
	Commit() error

	// WaitUntilCompleted blocks until the work has finished and all
	// completion handlers have returned.
	WaitUntilCompleted()
}

// ComputeEncoder records compute dispatches into a command buffer.
type ComputeEncoder interface {
	SetPipelineState(p PipelineState)

	// SetBuffer binds buf to argument slot index.
	SetBuffer(buf Buffer, index int)

	// DispatchThreadgroups launches groups thread-groups of threadsPerGroup
	// threads each.
	DispatchThreadgroups(groups, threadsPerGroup Size)

	// EndEncoding finishes recording.
	EndEncoding() error
}
