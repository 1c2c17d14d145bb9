//go:build !linux

package sysmem

func totalImpl() int64 { return 0 }
