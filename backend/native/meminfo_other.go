//go:build !linux

package native

// hostMemory returns 0: host RAM size is only queried on Linux.
func hostMemory() uint64 { return 0 }
