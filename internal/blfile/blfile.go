// Package blfile defines the loaded-file record shared by every waterfall
// format and the capability interface the format backends implement.
package blfile

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/sxyu/watplot/internal/aggregate"
	"github.com/sxyu/watplot/internal/axis"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/header"
	"github.com/sxyu/watplot/internal/region"
)

// Error categories. Backends wrap these with context; callers classify with
// errors.Is.
var (
	ErrIO              = errors.New("file not readable")
	ErrBadSignature    = header.ErrBadSignature
	ErrUnknownKeyword  = header.ErrUnknownKeyword
	ErrUnsupportedBits = header.ErrUnsupportedBits
	ErrInvalidHeader   = header.ErrInvalidHeader
	ErrUnknownFormat   = errors.New("unknown file format")
	ErrEmptyRange      = region.ErrEmptyRange
)

// File is a loaded waterfall file. View calls on one File must be
// serialized by the caller.
type File interface {
	// Meta returns the immutable metadata captured at load time.
	Meta() *Record
	// View resolves rect against the file and fills out with the padded
	// prefix-summed matrix of bin means, at most maxW time bins by maxH
	// frequency bins. It returns the region actually covered.
	View(rect region.Rect, out *grid.Matrix, maxW, maxH int) (region.Rect, error)
	// FormatName names the on-disk format.
	FormatName() string
	Close() error
}

// Record is the metadata of a loaded file.
type Record struct {
	Header        header.Header   `json:"header"`
	Path          string          `json:"path"`
	FileSizeBytes int64           `json:"file_size_bytes"`
	DataSizeBytes int64           `json:"data_size_bytes"`
	NInts         int             `json:"nints"`
	Freqs         axis.Axis       `json:"-"`
	Times         axis.Axis       `json:"-"`
	DataRect      region.Rect     `json:"data_rect"`
	Stats         aggregate.Stats `json:"stats"`
}

// NewRecord builds axes and the data rectangle for a validated header.
func NewRecord(path string, h header.Header, fileSize, dataSize int64, nints int) *Record {
	rec := &Record{
		Header:        h,
		Path:          path,
		FileSizeBytes: fileSize,
		DataSizeBytes: dataSize,
		NInts:         nints,
		Freqs:         axis.New(h.FCh1, h.FOff, h.NChans),
		Times:         axis.New(h.TStart, h.TSamp, nints),
		Stats:         aggregate.NewStats(),
	}
	rec.DataRect = DataRect(rec.Times, rec.Freqs)
	return rec
}

// DataRect returns the bounding rectangle of all cells on the two axes.
func DataRect(times, freqs axis.Axis) region.Rect {
	t0, t1 := times.Extent()
	f0, f1 := freqs.Extent()
	return region.Rect{X: t0, Y: f0, Width: t1 - t0, Height: f1 - f0}
}

// Name returns the file's base name.
func (r *Record) Name() string { return filepath.Base(r.Path) }

// Resolve resolves rect against the record's axes.
func (r *Record) Resolve(rect region.Rect, maxW, maxH int) region.Resolution {
	return region.Resolve(r.Times, r.Freqs, rect, maxW, maxH)
}

// Summary writes the header and size information shown by the stat command.
func (r *Record) Summary(w io.Writer, format string) {
	fmt.Fprintf(w, "File:\t\t%s (%s)\n", r.Path, format)
	r.Header.Summary(w)
	fmt.Fprintf(w, "Integrations:\t%d\n", r.NInts)
	fmt.Fprintf(w, "File size:\t%s\n", humanize.IBytes(uint64(r.FileSizeBytes)))
	fmt.Fprintf(w, "Data size:\t%s\n", humanize.IBytes(uint64(r.DataSizeBytes)))
	fmt.Fprintf(w, "Data range:\t%s\n", r.DataRect)
	if !r.Stats.Empty() {
		fmt.Fprintf(w, "Sample stats:\tmin %g, max %g, mean %g (%s samples)\n",
			r.Stats.Min, r.Stats.Max, r.Stats.Mean, humanize.Comma(r.Stats.Count))
	}
}
