//go:build unix

package filterbank

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/sxyu/watplot/internal/blfile"
)

// mapData memory-maps the file and returns the bytes from offset to size.
func mapData(f *os.File, offset, size int64) ([]byte, func(), error) {
	if size <= offset {
		return nil, func() {}, nil
	}
	m, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mmap: %v", blfile.ErrIO, err)
	}
	return m[offset:], func() { unix.Munmap(m) }, nil
}
