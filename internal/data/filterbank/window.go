package filterbank

import (
	"errors"
	"fmt"
	"io"

	"github.com/sxyu/watplot/internal/blfile"
)

// window is a read buffer over a byte range of the file. It re-reads only
// when a requested range is not already resident.
type window struct {
	r     io.ReaderAt
	limit int64 // file size
	buf   []byte
	start int64
	end   int64 // resident bytes are [start, end)
	reads int
}

func newWindow(r io.ReaderAt, limit int64, size int) *window {
	return &window{r: r, limit: limit, buf: make([]byte, size)}
}

// bytes returns the resident bytes for [off, off+n). The result is shorter
// than n when the range runs past the end of the file.
func (w *window) bytes(off, n int64) ([]byte, error) {
	if off >= w.limit || n <= 0 {
		return nil, nil
	}
	end := min(off+n, w.limit)
	if off < w.start || end > w.end {
		if err := w.fill(off, end-off); err != nil {
			return nil, err
		}
		end = min(end, w.end)
	}
	return w.buf[off-w.start : end-w.start], nil
}

func (w *window) fill(off, need int64) error {
	if int64(len(w.buf)) < need {
		w.buf = make([]byte, need)
	}
	size := min(int64(len(w.buf)), w.limit-off)
	n, err := w.r.ReadAt(w.buf[:size], off)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: read at offset %d: %v", blfile.ErrIO, off, err)
	}
	w.start, w.end = off, off+int64(n)
	w.reads++
	return nil
}
