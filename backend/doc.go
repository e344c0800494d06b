// Package backend is the registry of compute backends.
//
// Backends register a factory from an init function and are selected at
// runtime by name or by priority. Importing backend/native registers one
// backend per GPU API available on the platform plus the CPU software
// backend:
//
//	import _ "github.com/gogpu/compute/backend/native"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	b := backend.Default()
//	sw := backend.Get(backend.Software)
//
// Priority order: metal, vulkan, dx12, gles, software. Backends registered
// under other names are tried after these, in name order.
package backend
