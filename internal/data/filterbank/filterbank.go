// Package filterbank reads SIGPROC filterbank (.fil) waterfall files.
package filterbank

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sxyu/watplot/internal/aggregate"
	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/header"
	"github.com/sxyu/watplot/internal/region"
)

// FormatName identifies the flat keyword format.
const FormatName = "Filterbank"

// File is an open filterbank file. Samples are read on demand; only the
// header and a bounded statistics sample are read at load time.
type File struct {
	rec       *blfile.Record
	f         *os.File
	headerEnd int64
	nbytes    int
	budget    int64
}

var _ blfile.File = (*File)(nil)

// Load opens path, parses its header and scans the start of the data for
// display statistics. budget bounds every read buffer in bytes.
func Load(path string, budget int64) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", blfile.ErrIO, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", blfile.ErrIO, err)
	}

	h, headerEnd, err := header.ReadFlat(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("invalid header in %s: %w", path, err)
	}

	nbytes := h.BytesPerSample()
	dataSize := st.Size() - headerEnd
	nints := int(dataSize / int64(nbytes) / int64(h.NChans))

	fb := &File{
		rec:       blfile.NewRecord(path, h, st.Size(), dataSize, nints),
		f:         f,
		headerEnd: headerEnd,
		nbytes:    nbytes,
		budget:    budget,
	}
	if err := fb.scanStats(); err != nil {
		f.Close()
		return nil, err
	}

	log.Printf("[Filterbank] loaded %s: %d channels x %d integrations, %d-bit",
		fb.rec.Name(), h.NChans, nints, h.NBits)
	return fb, nil
}

// Meta returns the file's metadata.
func (fb *File) Meta() *blfile.Record { return fb.rec }

// FormatName returns "Filterbank".
func (fb *File) FormatName() string { return FormatName }

// Close releases the underlying file.
func (fb *File) Close() error { return fb.f.Close() }

func (fb *File) offset(t, f int) int64 {
	return fb.headerEnd + (int64(t)*int64(fb.rec.Header.NChans)+int64(f))*int64(fb.nbytes)
}

// scanStats reads a block from the start of the data, sized to the memory
// budget, and records min/max/mean.
func (fb *File) scanStats() error {
	limit := aggregate.StatSamples(fb.budget, fb.nbytes)
	rows, cols := aggregate.StatShape(limit, fb.rec.NInts, fb.rec.Header.NChans)
	if rows == 0 || cols == 0 {
		return nil
	}

	stride := int64(fb.rec.Header.NChans) * int64(fb.nbytes)
	rowBytes := int64(cols) * int64(fb.nbytes)
	win := newWindow(fb.f, fb.rec.FileSizeBytes, windowSize(fb.budget, stride, rowBytes, rows))
	samples := make([]float64, cols)
	stats := aggregate.NewStats()
	for t := 0; t < rows; t++ {
		raw, err := win.bytes(fb.offset(t, 0), rowBytes)
		if err != nil {
			return err
		}
		n, err := aggregate.Decode(samples, raw, fb.rec.Header.NBits)
		if err != nil {
			return err
		}
		stats.Add(samples[:n])
	}
	fb.rec.Stats = stats
	return nil
}

// View fills out with the binned prefix-sum matrix for rect.
func (fb *File) View(rect region.Rect, out *grid.Matrix, maxW, maxH int) (region.Rect, error) {
	if out == nil {
		return region.Rect{}, errors.New("nil output matrix")
	}
	h := fb.rec.Header
	res := fb.rec.Resolve(rect, maxW, maxH)
	b := aggregate.NewBinner(res, fb.rec.NInts, h.NChans, out)
	if res.Empty() {
		b.Finish()
		return res.Rect, nil
	}

	var err error
	if res.Native(fb.rec.NInts, h.NChans) && h.NBits == 64 {
		err = fb.viewMapped(b)
	} else {
		err = fb.viewWindowed(b)
	}
	if err != nil {
		return region.Rect{}, err
	}
	b.Finish()
	return res.Rect, nil
}

// viewWindowed walks the time rows in order, refilling the read window only
// when the next row is not resident.
func (fb *File) viewWindowed(b *aggregate.Binner) error {
	tlo, thi := b.TimeRange()
	flo, fhi := b.FreqRange()
	nch := fhi - flo

	stride := int64(fb.rec.Header.NChans) * int64(fb.nbytes)
	rowBytes := int64(nch) * int64(fb.nbytes)
	win := newWindow(fb.f, fb.rec.FileSizeBytes, windowSize(b.ReadBudget(fb.budget), stride, rowBytes, thi-tlo))
	samples := make([]float64, nch)

	for t := tlo; t < thi; t++ {
		raw, err := win.bytes(fb.offset(t, flo), rowBytes)
		if err != nil {
			return err
		}
		n, err := aggregate.Decode(samples, raw, fb.rec.Header.NBits)
		if err != nil {
			return err
		}
		b.AddRow(t, samples[:n])
	}
	return nil
}

// viewMapped copies the whole data block at native resolution.
func (fb *File) viewMapped(b *aggregate.Binner) error {
	data, release, err := mapData(fb.f, fb.headerEnd, fb.rec.FileSizeBytes)
	if err != nil {
		return err
	}
	defer release()

	nch := fb.rec.Header.NChans
	stride := nch * fb.nbytes
	samples := make([]float64, nch)
	for t := 0; t < fb.rec.NInts; t++ {
		off := t * stride
		if off >= len(data) {
			break
		}
		n, err := aggregate.Decode(samples, data[off:min(off+stride, len(data))], fb.rec.Header.NBits)
		if err != nil {
			return err
		}
		b.AddRow(t, samples[:n])
	}
	return nil
}

// windowSize picks a read buffer covering as many consecutive rows as the
// budget allows, and never less than one row.
func windowSize(budget, stride, rowBytes int64, rows int) int {
	if rows <= 1 {
		return int(max(rowBytes, 1))
	}
	n := int64(aggregate.WindowRows(budget, stride, rows))
	return int(max((n-1)*stride+rowBytes, rowBytes, 1))
}
