// Package native implements the compute backend contract on gogpu/wgpu HAL
// devices, with kernels written in WGSL and compiled to SPIR-V by gogpu/naga.
//
// Importing the package registers one backend per HAL API available on the
// platform (metal, vulkan, dx12, gles) plus the CPU "software" backend:
//
//	import _ "github.com/gogpu/compute/backend/native"
//
//	ctx, err := compute.New() // best available
//	ctx, err := compute.New(compute.WithBackendName("software"))
//
// # Kernels
//
// A kernel is a WGSL module. Every @compute entry point is a function.
// Buffer argument slot i binds to @group(0) @binding(i); the binding's
// address space and access mode select a storage, read-only storage or
// uniform binding. The thread-group size is the entry point's
// @workgroup_size, so kernels should bound-check their invocation index.
// Pass the element count in a uniform binding:
//
//	@group(0) @binding(0) var<storage, read> input: array<f32>;
//	@group(0) @binding(1) var<storage, read_write> output: array<f32>;
//	@group(0) @binding(2) var<uniform> count: u32;
//
//	@compute @workgroup_size(64)
//	fn square(@builtin(global_invocation_id) id: vec3<u32>) {
//	    let i = id.x;
//	    if (i < count) {
//	        output[i] = input[i] * input[i];
//	    }
//	}
//
// The software backend evaluates arrayLength of a runtime-sized array as 0,
// so a guard such as i < arrayLength(&output) skips every element there.
// Bound by a constant or a uniform instead.
//
// # Buffers
//
// Buffers are allocated host-visible and stay mapped for their whole
// lifetime, so the slice returned by Contents is the device memory itself.
//
// # Completion
//
// Each device runs one watcher goroutine while work is in flight. It polls
// the HAL queue for finished submissions and runs their completion handlers
// in submission order.
//
// # External Devices
//
// FromProvider wraps a device owned by another gogpu component
// (gpucontext.DeviceProvider) so that compute work can share it.
package native
