package hdf5

import (
	"path/filepath"
	"testing"

	h5 "github.com/scigolib/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
)

// fixture describes a small waterfall written as a real HDF5 file.
type fixture struct {
	nbits, nints, nchans int
	fch1, foff           float64
	value                func(t, f int) float64
}

func (fx fixture) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.h5")
	fw, err := h5.CreateForWrite(path, h5.CreateTruncate)
	require.NoError(t, err)

	dims := []uint64{uint64(fx.nints), 1, uint64(fx.nchans)}
	var ds *h5.DatasetWriter
	switch fx.nbits {
	case 8:
		ds, err = fw.CreateDataset("/"+DatasetName, h5.Uint8, dims)
		require.NoError(t, err)
		vals := make([]uint8, 0, fx.nints*fx.nchans)
		for ti := 0; ti < fx.nints; ti++ {
			for fi := 0; fi < fx.nchans; fi++ {
				vals = append(vals, uint8(fx.value(ti, fi)))
			}
		}
		require.NoError(t, ds.Write(vals))
	case 32:
		ds, err = fw.CreateDataset("/"+DatasetName, h5.Float32, dims)
		require.NoError(t, err)
		vals := make([]float32, 0, fx.nints*fx.nchans)
		for ti := 0; ti < fx.nints; ti++ {
			for fi := 0; fi < fx.nchans; fi++ {
				vals = append(vals, float32(fx.value(ti, fi)))
			}
		}
		require.NoError(t, ds.Write(vals))
	default:
		t.Fatalf("no fixture writer for %d-bit data", fx.nbits)
	}

	attrs := []struct {
		name  string
		value interface{}
	}{
		{"source_name", "FIXTURE"},
		{"telescope_id", int32(6)},
		{"nbits", int32(fx.nbits)},
		{"nchans", int32(fx.nchans)},
		{"nifs", int32(1)},
		{"fch1", fx.fch1},
		{"foff", fx.foff},
		{"tstart", 58000.0},
		{"tsamp", 2.0},
	}
	for _, a := range attrs {
		require.NoError(t, ds.WriteAttribute(a.name, a.value), "attribute %s", a.name)
	}
	require.NoError(t, fw.Close())
	return path
}

func TestLoad_File32Bit(t *testing.T) {
	fx := fixture{nbits: 32, nints: 6, nchans: 10, fch1: 1500, foff: -0.5, value: ramp}
	f, err := Load(fx.write(t), 64<<20)
	require.NoError(t, err)
	defer f.Close()

	rec := f.Meta()
	assert.Equal(t, 6, rec.NInts)
	assert.Equal(t, 10, rec.Header.NChans)
	assert.Equal(t, 32, rec.Header.NBits)
	assert.Equal(t, "FIXTURE", rec.Header.SourceName)
	assert.Equal(t, "GBT", rec.Header.TelescopeName())
	assert.Equal(t, int64(6*10*4), rec.DataSizeBytes)
	assert.Equal(t, 509.0, rec.Stats.Max)

	// descending foff: row 0 of the view is the highest storage channel
	out := grid.NewMatrix(0, 0)
	got, err := f.View(rec.DataRect, out, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, rec.DataRect, got)
	require.Equal(t, 10, out.Height())
	require.Equal(t, 6, out.Width())
	for ti := 0; ti < 6; ti++ {
		for fi := 0; fi < 10; fi++ {
			assert.InDelta(t, ramp(ti, fi), out.RectMean(9-fi, ti, 10-fi, ti+1), 1e-9,
				"time %d channel %d", ti, fi)
		}
	}

	// strided: every 2nd integration, every 5th channel
	_, err = f.View(rec.DataRect, out, 3, 2)
	require.NoError(t, err)
	require.Equal(t, 2, out.Height())
	require.Equal(t, 3, out.Width())
	assert.InDelta(t, ramp(2, 5), out.RectMean(0, 1, 1, 2), 1e-9)
	assert.InDelta(t, ramp(4, 0), out.RectMean(1, 2, 2, 3), 1e-9)
}

func TestLoad_File8Bit(t *testing.T) {
	fx := fixture{nbits: 8, nints: 4, nchans: 3, fch1: 1000, foff: 1,
		value: func(t, f int) float64 { return float64(t*10 + f) }}
	f, err := Load(fx.write(t), 64<<20)
	require.NoError(t, err)
	defer f.Close()

	rec := f.Meta()
	assert.Equal(t, 8, rec.Header.NBits)
	assert.Equal(t, 32.0*256, rec.Stats.Max)
	assert.Equal(t, region.Rect{X: 58000, Y: 1000, Width: 8, Height: 3}, rec.DataRect)

	out := grid.NewMatrix(0, 0)
	_, err = f.View(region.Rect{X: 58002, Y: 1001, Width: 4, Height: 2}, out, 10, 10)
	require.NoError(t, err)
	require.Equal(t, 2, out.Width())
	require.Equal(t, 2, out.Height())
	assert.InDelta(t, 11.0*256, out.RectMean(0, 0, 1, 1), 1e-9)
	assert.InDelta(t, 22.0*256, out.RectMean(1, 1, 2, 2), 1e-9)
}
