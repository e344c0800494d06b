// Package gpucore defines the capability contract between the compute
// handle registry and a GPU backend.
//
// The registry in package compute never touches native GPU objects directly.
// Everything it needs from a backend is expressed by the interfaces in this
// package:
//
//	Backend ──> Device ──┬──> Queue ──> CommandBuffer ──> ComputeEncoder
//	                     ├──> Library ──> Function
//	                     ├──> Buffer
//	                     └──> PipelineState
//
// # Implementations
//
//   - backend/native: gogpu/wgpu HAL devices (Vulkan, Metal, DX12, GLES,
//     software) with kernels compiled from WGSL by gogpu/naga.
//   - internal/fakegpu: in-memory backend used by tests.
//
// # Completion
//
// A CommandBuffer runs asynchronously once committed. Handlers registered
// with [CommandBuffer.AddCompletedHandler] are invoked exactly once, after
// the work finished, on a goroutine owned by the backend.
// [CommandBuffer.WaitUntilCompleted] blocks until that point.
//
// # Thread Safety
//
// Devices, queues and buffers may be used from multiple goroutines.
// A CommandBuffer and its ComputeEncoder are single-owner objects until
// Commit.
package gpucore
