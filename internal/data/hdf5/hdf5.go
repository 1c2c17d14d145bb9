// Package hdf5 reads waterfall files stored as an HDF5 dataset named "data"
// of shape (time, 1, frequency), with header keywords as dataset attributes.
package hdf5

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	h5 "github.com/scigolib/hdf5"

	"github.com/sxyu/watplot/internal/aggregate"
	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/header"
	"github.com/sxyu/watplot/internal/region"
)

const (
	// FormatName identifies the hierarchical format.
	FormatName = "HDF5"
	// DatasetName is the dataset holding the samples.
	DatasetName = "data"
)

// Dataset is the strided read an HDF5 dataset supports natively.
// *h5.Dataset implements it.
type Dataset interface {
	ReadHyperslab(sel *h5.HyperslabSelection) (interface{}, error)
}

// File is an open HDF5 waterfall file. The header and time extent come from
// the netCDF view of the file; samples are read as strided hyperslabs.
type File struct {
	rec    *blfile.Record
	data   Dataset
	close  func()
	budget int64
}

var _ blfile.File = (*File)(nil)

// Load opens path and reads the header attributes and a statistics sample.
func Load(path string, budget int64) (*File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", blfile.ErrIO, err)
	}
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", blfile.ErrBadSignature, path, err)
	}
	v, err := g.GetVarGetter(DatasetName)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("%w: %s has no %q dataset: %v", blfile.ErrInvalidHeader, path, DatasetName, err)
	}
	hf, err := h5.Open(path)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("%w: %s: %v", blfile.ErrBadSignature, path, err)
	}
	closer := func() {
		hf.Close()
		g.Close()
	}
	ds := findDataset(hf, DatasetName)
	if ds == nil {
		closer()
		return nil, fmt.Errorf("%w: %s has no %q dataset", blfile.ErrInvalidHeader, path, DatasetName)
	}

	f, err := open(path, st.Size(), v, ds, closer, budget)
	if err != nil {
		closer()
		return nil, err
	}
	log.Printf("[HDF5] loaded %s: %d channels x %d integrations, %d-bit",
		f.rec.Name(), f.rec.Header.NChans, f.rec.NInts, f.rec.Header.NBits)
	return f, nil
}

// findDataset returns the dataset at /name, or nil.
func findDataset(hf *h5.File, name string) *h5.Dataset {
	var found *h5.Dataset
	hf.Walk(func(p string, obj h5.Object) {
		if ds, ok := obj.(*h5.Dataset); ok && found == nil && strings.TrimPrefix(p, "/") == name {
			found = ds
		}
	})
	return found
}

// open builds a File from the header variable v and the sample dataset ds.
func open(path string, fileSize int64, v api.VarGetter, ds Dataset, closer func(), budget int64) (*File, error) {
	h, err := header.FromAttributes(v.Attributes())
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid header in %s: %w", path, err)
	}

	nints := int(v.Len())
	// The reader exposes no on-disk storage size, so report the
	// uncompressed sample size.
	dataSize := int64(nints) * int64(h.NChans) * int64(h.BytesPerSample())

	f := &File{
		rec:    blfile.NewRecord(path, h, fileSize, dataSize, nints),
		data:   ds,
		close:  closer,
		budget: budget,
	}
	if err := f.scanStats(); err != nil {
		return nil, err
	}
	return f, nil
}

// Meta returns the file's metadata.
func (f *File) Meta() *blfile.Record { return f.rec }

// FormatName returns "HDF5".
func (f *File) FormatName() string { return FormatName }

// Close releases the underlying file.
func (f *File) Close() error {
	if f.close != nil {
		f.close()
	}
	return nil
}

// read fetches the selection and returns its samples in row-major order,
// with the 8-bit scale applied.
func (f *File) read(dst []float64, sel *h5.HyperslabSelection) ([]float64, error) {
	raw, err := f.data.ReadHyperslab(sel)
	if err != nil {
		return dst, fmt.Errorf("%w: read %v+%v/%v: %v", blfile.ErrIO, sel.Start, sel.Count, sel.Stride, err)
	}
	dst, err = flatten(dst[:0], raw)
	if err != nil {
		return dst, err
	}
	want := 1
	for _, c := range sel.Count {
		want *= int(c)
	}
	if len(dst) < want {
		return dst, fmt.Errorf("%w: selection holds %d samples, want %d", blfile.ErrInvalidHeader, len(dst), want)
	}
	nbits := f.rec.Header.NBits
	for i := range dst {
		dst[i] = aggregate.Scale(dst[i], nbits)
	}
	return dst, nil
}

// scanStats reads a block from the start of the data, sized to the memory
// budget, and records min/max/mean.
func (f *File) scanStats() error {
	limit := aggregate.StatSamples(f.budget, f.rec.Header.BytesPerSample())
	rows, cols := aggregate.StatShape(limit, f.rec.NInts, f.rec.Header.NChans)
	if rows == 0 || cols == 0 {
		return nil
	}
	buf, err := f.read(nil, &h5.HyperslabSelection{
		Start: []uint64{0, 0, 0},
		Count: []uint64{uint64(rows), 1, uint64(cols)},
	})
	if err != nil {
		return err
	}
	stats := aggregate.NewStats()
	stats.Add(buf[:rows*cols])
	f.rec.Stats = stats
	return nil
}

// View fills out with the prefix-sum matrix for rect. Each bin takes the
// sample at its first index, read as one strided hyperslab per block of
// time bins, scaled by the bin area so the prefix pass yields that sample as
// the bin mean. At native resolution this equals the raw data.
func (f *File) View(rect region.Rect, out *grid.Matrix, maxW, maxH int) (region.Rect, error) {
	if out == nil {
		return region.Rect{}, errors.New("nil output matrix")
	}
	res := f.rec.Resolve(rect, maxW, maxH)
	b := aggregate.NewBinner(res, f.rec.NInts, f.rec.Header.NChans, out)
	if res.Empty() {
		b.Finish()
		return res.Rect, nil
	}

	tlo, thi := b.TimeRange()
	flo, fhi := b.FreqRange()
	nt := ceilDiv(thi-tlo, res.TStep)
	nf := ceilDiv(fhi-flo, res.FStep)
	if nt > 0 && nf > 0 {
		if err := f.readStrided(b, tlo, flo, nt, nf, res.Area()); err != nil {
			return region.Rect{}, err
		}
	}
	b.Finish()
	return res.Rect, nil
}

// readStrided selects nt time bins by nf channel bins starting at (tlo, flo),
// in blocks of time bins bounded by what the output matrix leaves of the
// budget.
func (f *File) readStrided(b *aggregate.Binner, tlo, flo, nt, nf int, area float64) error {
	res := b.Resolution()
	block := aggregate.WindowRows(b.ReadBudget(f.budget), int64(nf)*8, nt)

	var buf []float64
	var err error
	for k := 0; k < nt; k += block {
		n := min(block, nt-k)
		t0 := tlo + k*res.TStep
		buf, err = f.read(buf, &h5.HyperslabSelection{
			Start:  []uint64{uint64(t0), 0, uint64(flo)},
			Count:  []uint64{uint64(n), 1, uint64(nf)},
			Stride: []uint64{uint64(res.TStep), 1, uint64(res.FStep)},
		})
		if err != nil {
			return err
		}
		for r := 0; r < n; r++ {
			t := t0 + r*res.TStep
			row := buf[r*nf : (r+1)*nf]
			for j, v := range row {
				b.Add(t, flo+j*res.FStep, v*area)
			}
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
