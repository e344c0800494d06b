//go:build linux

package native

import "golang.org/x/sys/unix"

// hostMemory returns the total host RAM in bytes, or 0 if unknown.
func hostMemory() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Totalram) * uint64(info.Unit)
}
