//go:build linux

package sysmem

import "golang.org/x/sys/unix"

func totalImpl() int64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return int64(uint64(info.Totalram) * uint64(info.Unit))
}
