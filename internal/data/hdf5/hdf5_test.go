package hdf5

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	h5 "github.com/scigolib/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
)

type fakeAttrs struct {
	keys []string
	vals map[string]interface{}
}

func (a *fakeAttrs) Keys() []string { return a.keys }

func (a *fakeAttrs) Get(key string) (interface{}, bool) {
	v, ok := a.vals[key]
	return v, ok
}

func (a *fakeAttrs) GetType(key string) (string, bool) {
	v, ok := a.vals[key]
	return fmt.Sprintf("%T", v), ok
}

func (a *fakeAttrs) GetGoType(key string) (string, bool) { return a.GetType(key) }

func (a *fakeAttrs) set(key string, v interface{}) {
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = v
}

// fakeVar is a (time, 1, frequency) float32 dataset. It serves both the
// header variable and strided hyperslab reads.
type fakeVar struct {
	rows  [][][]float32
	attrs *fakeAttrs
	reads []h5.HyperslabSelection
}

func newFakeVar(nints, nchans int, value func(t, f int) float64) *fakeVar {
	rows := make([][][]float32, nints)
	for t := range rows {
		row := make([]float32, nchans)
		for f := range row {
			row[f] = float32(value(t, f))
		}
		rows[t] = [][]float32{row}
	}
	// attribute order differs from the keyword table on purpose
	attrs := &fakeAttrs{vals: map[string]interface{}{}}
	attrs.set("CLASS", "DATA")
	attrs.set("nchans", int32(nchans))
	attrs.set("tsamp", 1.0)
	attrs.set("foff", 1.0)
	attrs.set("source_name", "FAKE")
	attrs.set("fch1", 1000.0)
	attrs.set("nbits", int32(32))
	attrs.set("tstart", 0.0)
	attrs.set("telescope_id", int32(6))
	return &fakeVar{rows: rows, attrs: attrs}
}

func (v *fakeVar) Len() int64                   { return int64(len(v.rows)) }
func (v *fakeVar) Values() (interface{}, error) { return v.rows, nil }
func (v *fakeVar) Dimensions() []string         { return []string{"time", "feed_id", "frequency"} }
func (v *fakeVar) Attributes() api.AttributeMap { return v.attrs }
func (v *fakeVar) Type() string                 { return "float" }
func (v *fakeVar) GoType() string               { return "float32" }

func (v *fakeVar) GetSlice(begin, end int64) (interface{}, error) {
	if begin < 0 || end > int64(len(v.rows)) || begin > end {
		return nil, fmt.Errorf("slice [%d, %d) out of range", begin, end)
	}
	return v.rows[begin:end], nil
}

// ReadHyperslab returns the selected samples flattened in row-major order.
func (v *fakeVar) ReadHyperslab(sel *h5.HyperslabSelection) (interface{}, error) {
	stride := sel.Stride
	if stride == nil {
		stride = []uint64{1, 1, 1}
	}
	dims := []uint64{uint64(len(v.rows)), 1, uint64(len(v.rows[0][0]))}
	for d := range dims {
		if sel.Count[d] == 0 || stride[d] == 0 {
			return nil, fmt.Errorf("empty selection in dimension %d", d)
		}
		if last := sel.Start[d] + (sel.Count[d]-1)*stride[d]; last >= dims[d] {
			return nil, fmt.Errorf("dimension %d selects %d of %d", d, last, dims[d])
		}
	}
	v.reads = append(v.reads, *sel)

	var out []float64
	for i := uint64(0); i < sel.Count[0]; i++ {
		row := v.rows[sel.Start[0]+i*stride[0]][0]
		for j := uint64(0); j < sel.Count[2]; j++ {
			out = append(out, float64(row[sel.Start[2]+j*stride[2]]))
		}
	}
	return out, nil
}

func openFake(t *testing.T, v *fakeVar, budget int64) *File {
	t.Helper()
	f, err := open("fake.h5", 1234, v, v, nil, budget)
	require.NoError(t, err)
	return f
}

func ramp(t, f int) float64 { return float64(t*100 + f) }

func TestOpen_Header(t *testing.T) {
	v := newFakeVar(6, 8, ramp)
	f := openFake(t, v, 64<<20)
	rec := f.Meta()

	assert.Equal(t, "HDF5", f.FormatName())
	assert.Equal(t, 6, rec.NInts)
	assert.Equal(t, 8, rec.Header.NChans)
	assert.Equal(t, "FAKE", rec.Header.SourceName)
	assert.Equal(t, "GBT", rec.Header.TelescopeName())
	assert.Equal(t, int64(6*8*4), rec.DataSizeBytes)
	assert.Equal(t, region.Rect{X: 0, Y: 1000, Width: 6, Height: 8}, rec.DataRect)
	assert.Equal(t, 507.0, rec.Stats.Max)
	assert.Equal(t, 0.0, rec.Stats.Min)
	require.NoError(t, f.Close())
}

func TestOpen_Errors(t *testing.T) {
	v := newFakeVar(2, 4, ramp)
	v.attrs.set("mystery", 1.0)
	_, err := open("fake.h5", 0, v, v, nil, 64<<20)
	require.ErrorIs(t, err, blfile.ErrUnknownKeyword)

	v = newFakeVar(2, 4, ramp)
	v.attrs.set("nbits", int32(4))
	_, err = open("fake.h5", 0, v, v, nil, 64<<20)
	require.ErrorIs(t, err, blfile.ErrUnsupportedBits)

	_, err = Load(filepath.Join(t.TempDir(), "missing.h5"), 64<<20)
	require.ErrorIs(t, err, blfile.ErrIO)
}

func TestView_Native(t *testing.T) {
	v := newFakeVar(5, 7, ramp)
	f := openFake(t, v, 64<<20)

	out := grid.NewMatrix(0, 0)
	got, err := f.View(f.Meta().DataRect, out, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, f.Meta().DataRect, got)
	require.Equal(t, 7, out.Height())
	require.Equal(t, 5, out.Width())
	for ti := 0; ti < 5; ti++ {
		for fi := 0; fi < 7; fi++ {
			assert.InDelta(t, ramp(ti, fi), out.RectMean(fi, ti, fi+1, ti+1), 1e-9)
		}
	}
}

func TestView_StridedSelection(t *testing.T) {
	v := newFakeVar(9, 10, ramp)
	f := openFake(t, v, 64<<20)

	out := grid.NewMatrix(0, 0)
	_, err := f.View(f.Meta().DataRect, out, 3, 4)
	require.NoError(t, err)
	require.Equal(t, 4, out.Height()) // channel step 3: 0 3 6 9
	require.Equal(t, 3, out.Width())  // time step 3: 0 3 6

	// each bin carries the sample at its first index
	for i, ti := range []int{0, 3, 6} {
		for j, fi := range []int{0, 3, 6, 9} {
			assert.InDelta(t, ramp(ti, fi), out.RectMean(j, i, j+1, i+1), 1e-9,
				"bin (%d, %d)", j, i)
		}
	}

	// one strided read after the stats scan, covering only the selection
	require.Len(t, v.reads, 2)
	sel := v.reads[1]
	assert.Equal(t, []uint64{0, 0, 0}, sel.Start)
	assert.Equal(t, []uint64{3, 1, 4}, sel.Count)
	assert.Equal(t, []uint64{3, 1, 3}, sel.Stride)
}

func TestView_ZoomReadsOnlyWindow(t *testing.T) {
	v := newFakeVar(40, 200, ramp)
	f := openFake(t, v, 64<<20)

	// channels 1100..1199 of 200, every 8th; times 4..23, every 4th
	out := grid.NewMatrix(0, 0)
	_, err := f.View(region.Rect{X: 4, Y: 1100, Width: 20, Height: 100}, out, 5, 13)
	require.NoError(t, err)
	require.Equal(t, 5, out.Width())
	require.Equal(t, 13, out.Height())

	sel := v.reads[len(v.reads)-1]
	assert.Equal(t, []uint64{4, 0, 100}, sel.Start)
	assert.Equal(t, []uint64{5, 1, 13}, sel.Count)
	assert.Equal(t, []uint64{4, 1, 8}, sel.Stride)
	assert.InDelta(t, ramp(8, 108), out.RectMean(1, 1, 2, 2), 1e-9)
}

func TestView_BlocksBoundedByBudget(t *testing.T) {
	v := newFakeVar(12, 4, ramp)
	// room for the 14x6 matrix and three 4-sample rows
	f := openFake(t, v, 14*6*8+3*4*8)

	out := grid.NewMatrix(0, 0)
	_, err := f.View(f.Meta().DataRect, out, 100, 100)
	require.NoError(t, err)

	blocks := v.reads[1:]
	require.Len(t, blocks, 4)
	for k, sel := range blocks {
		assert.Equal(t, uint64(3*k), sel.Start[0])
		assert.Equal(t, uint64(3), sel.Count[0])
	}
	assert.InDelta(t, ramp(11, 3), out.RectMean(3, 11, 4, 12), 1e-9)
}

func TestView_DescendingAndBytes(t *testing.T) {
	v := newFakeVar(3, 4, func(t, f int) float64 { return float64(t*10 + f) })
	v.attrs.set("nbits", int32(8))
	v.attrs.set("fch1", 1000.0)
	v.attrs.set("foff", -1.0)
	f := openFake(t, v, 64<<20)

	out := grid.NewMatrix(0, 0)
	got, err := f.View(region.Rect{X: 0, Y: 998, Width: 3, Height: 2}, out, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, region.Rect{X: 0, Y: 998, Width: 3, Height: 2}, got)
	require.Equal(t, 2, out.Height())

	for ti := 0; ti < 3; ti++ {
		assert.InDelta(t, float64(ti*10+1)*256, out.RectMean(0, ti, 1, ti+1), 1e-9)
		assert.InDelta(t, float64(ti*10+0)*256, out.RectMean(1, ti, 2, ti+1), 1e-9)
	}
}

func TestView_OutsideIsEmpty(t *testing.T) {
	f := openFake(t, newFakeVar(3, 4, ramp), 64<<20)
	out := grid.NewMatrix(3, 3)
	_, err := f.View(region.Rect{X: 50, Y: 1000, Width: 1, Height: 1}, out, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, out.Dense().RawMatrix().Data)
}

func TestFlatten(t *testing.T) {
	got, err := flatten(nil, [][][]uint16{{{1, 2}}, {{3, 4}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, got)

	got, err = flatten(got[:0], [][][]float64{{{0.5}}, {{1.5}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, got)

	_, err = flatten(nil, []string{"x"})
	require.Error(t, err)
}
