//go:build !unix

package filterbank

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sxyu/watplot/internal/blfile"
)

// mapData reads the bytes from offset to size into memory.
func mapData(f *os.File, offset, size int64) ([]byte, func(), error) {
	if size <= offset {
		return nil, func() {}, nil
	}
	buf := make([]byte, size-offset)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %v", blfile.ErrIO, err)
	}
	return buf[:n], func() {}, nil
}
