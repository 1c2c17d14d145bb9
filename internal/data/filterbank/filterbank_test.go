package filterbank

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
	"github.com/sxyu/watplot/internal/testutil"
)

const testBudget = 64 << 20

func ramp(t, f int) float64 { return float64(t*100 + f) }

func load(t *testing.T, s testutil.Spectrogram, budget int64) *File {
	t.Helper()
	fb, err := Load(s.WriteFile(t), budget)
	require.NoError(t, err)
	t.Cleanup(func() { fb.Close() })
	return fb
}

// debin recovers bin (j, i) from a prefix-summed matrix of bin means.
func debin(m *grid.Matrix, j, i int) float64 {
	return m.RectMean(j, i, j+1, i+1)
}

func TestLoad_Metadata(t *testing.T) {
	s := testutil.Spectrogram{NBits: 32, NChans: 8, NInts: 5, FCh1: 1500, FOff: -0.5,
		TStart: 58000, TSamp: 1.5, Value: ramp}
	fb := load(t, s, testBudget)
	rec := fb.Meta()

	assert.Equal(t, "Filterbank", fb.FormatName())
	assert.Equal(t, 5, rec.NInts)
	assert.Equal(t, int64(len(s.Header())), fb.headerEnd)
	assert.Equal(t, int64(5*8*4), rec.DataSizeBytes)
	assert.Equal(t, "TEST_SRC", rec.Header.SourceName)
	assert.Equal(t, 8, rec.Freqs.Len())
	assert.True(t, rec.Freqs.Descending())
	assert.Equal(t, region.Rect{X: 58000, Y: 1496, Width: 7.5, Height: 4}, rec.DataRect)

	assert.Equal(t, 0.0, rec.Stats.Min)
	assert.Equal(t, 407.0, rec.Stats.Max)
	assert.Equal(t, int64(40), rec.Stats.Count)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.fil"), testBudget)
	require.ErrorIs(t, err, blfile.ErrIO)

	junk := filepath.Join(t.TempDir(), "junk.fil")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a filterbank file"), 0644))
	_, err = Load(junk, testBudget)
	require.ErrorIs(t, err, blfile.ErrBadSignature)

	s := testutil.Spectrogram{NBits: 12, NChans: 4, NInts: 1, FCh1: 1, FOff: 1, TSamp: 1,
		Value: ramp}
	path := filepath.Join(t.TempDir(), "bits.fil")
	require.NoError(t, os.WriteFile(path, s.Header(), 0644))
	_, err = Load(path, testBudget)
	require.ErrorIs(t, err, blfile.ErrUnsupportedBits)
}

func TestView_NativeRoundTrip(t *testing.T) {
	for _, nbits := range []int{8, 16, 32, 64} {
		t.Run(fmt.Sprintf("%d bit", nbits), func(t *testing.T) {
			s := testutil.Spectrogram{NBits: nbits, NChans: 16, NInts: 12, FCh1: 1000, FOff: 0.25,
				TStart: 0, TSamp: 1, Value: func(t, f int) float64 { return float64((t*16 + f) % 200) }}
			fb := load(t, s, testBudget)

			out := grid.NewMatrix(0, 0)
			got, err := fb.View(fb.Meta().DataRect, out, 100, 100)
			require.NoError(t, err)
			assert.Equal(t, fb.Meta().DataRect, got)
			require.Equal(t, 16, out.Height())
			require.Equal(t, 12, out.Width())

			scale := 1.0
			if nbits == 8 {
				scale = 256
			}
			for ti := 0; ti < 12; ti++ {
				for f := 0; f < 16; f++ {
					assert.InDelta(t, s.Value(ti, f)*scale, debin(out, f, ti), 1e-6,
						"nbits=%d t=%d f=%d", nbits, ti, f)
				}
			}
		})
	}
}

func TestView_DescendingFrequency(t *testing.T) {
	s := testutil.Spectrogram{NBits: 32, NChans: 4, NInts: 3, FCh1: 1000, FOff: -1,
		TStart: 0, TSamp: 1, Value: ramp}
	fb := load(t, s, testBudget)

	out := grid.NewMatrix(0, 0)
	got, err := fb.View(region.Rect{X: 0, Y: 998, Width: 3, Height: 2}, out, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, region.Rect{X: 0, Y: 998, Width: 3, Height: 2}, got)
	require.Equal(t, 2, out.Height())

	// storage channels 0 (1000 MHz) and 1 (999 MHz); row 0 is the lower one
	for ti := 0; ti < 3; ti++ {
		assert.InDelta(t, ramp(ti, 1), debin(out, 0, ti), 1e-9)
		assert.InDelta(t, ramp(ti, 0), debin(out, 1, ti), 1e-9)
	}
}

func TestView_BinnedWithRemainder(t *testing.T) {
	s := testutil.Spectrogram{NBits: 16, NChans: 5, NInts: 7, FCh1: 100, FOff: 1,
		TStart: 0, TSamp: 1, Value: ramp}
	fb := load(t, s, testBudget)

	out := grid.NewMatrix(0, 0)
	_, err := fb.View(fb.Meta().DataRect, out, 4, 3)
	require.NoError(t, err)
	require.Equal(t, 3, out.Height()) // steps of 2 channels: {0,1} {2,3} {4}
	require.Equal(t, 4, out.Width())  // steps of 2 integrations: ... {6}

	sum := func(t0, t1, f0, f1 int) float64 {
		var v float64
		for ti := t0; ti < t1; ti++ {
			for f := f0; f < f1; f++ {
				v += ramp(ti, f)
			}
		}
		return v
	}
	assert.InDelta(t, sum(0, 2, 0, 2)/4, debin(out, 0, 0), 1e-9)
	assert.InDelta(t, sum(2, 4, 2, 4)/4, debin(out, 1, 1), 1e-9)
	assert.InDelta(t, sum(0, 2, 4, 5)/4, debin(out, 2, 0), 1e-9, "partial channel bin")
	assert.InDelta(t, sum(6, 7, 4, 5)/4, debin(out, 2, 3), 1e-9, "partial corner bin")
}

func TestView_SmallBudgetMatchesLarge(t *testing.T) {
	s := testutil.Spectrogram{NBits: 32, NChans: 64, NInts: 40, FCh1: 1000, FOff: -0.1,
		TStart: 0, TSamp: 2, Value: func(t, f int) float64 { return float64((t * f) % 97) }}
	path := s.WriteFile(t)

	big, err := Load(path, testBudget)
	require.NoError(t, err)
	defer big.Close()
	small, err := Load(path, 1)
	require.NoError(t, err)
	defer small.Close()

	rect := region.Rect{X: 10, Y: 996, Width: 50, Height: 3}
	a, b := grid.NewMatrix(0, 0), grid.NewMatrix(0, 0)
	ra, err := big.View(rect, a, 7, 5)
	require.NoError(t, err)
	rb, err := small.View(rect, b, 7, 5)
	require.NoError(t, err)

	assert.Equal(t, ra, rb)
	assert.Equal(t, a.Dense().RawMatrix().Data, b.Dense().RawMatrix().Data)
}

func TestView_OutsideIsPaddingOnly(t *testing.T) {
	s := testutil.Spectrogram{NBits: 32, NChans: 4, NInts: 3, FCh1: 1000, FOff: 1,
		TStart: 0, TSamp: 1, Value: ramp}
	fb := load(t, s, testBudget)

	out := grid.NewMatrix(10, 10)
	_, err := fb.View(region.Rect{X: 0, Y: 5000, Width: 3, Height: 10}, out, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows())
	assert.Equal(t, 2, out.Cols())
	assert.Equal(t, []float64{0, 0, 0, 0}, out.Dense().RawMatrix().Data)
}

func TestView_TruncatedFileClamps(t *testing.T) {
	s := testutil.Spectrogram{NBits: 32, NChans: 4, NInts: 3, FCh1: 1000, FOff: 1,
		TStart: 0, TSamp: 1, Value: ramp}
	// drop half of the last integration; nints floors to 2
	data := append(s.Header(), s.Samples()...)
	path := filepath.Join(t.TempDir(), "short.fil")
	require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0644))

	fb, err := Load(path, testBudget)
	require.NoError(t, err)
	defer fb.Close()
	assert.Equal(t, 2, fb.Meta().NInts)

	out := grid.NewMatrix(0, 0)
	_, err = fb.View(fb.Meta().DataRect, out, 10, 10)
	require.NoError(t, err)
	assert.InDelta(t, ramp(1, 3), debin(out, 3, 1), 1e-9)
}

func TestWindow_ReusesResidentBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.bin")
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	w := newWindow(f, 100, 40)
	b, err := w.bytes(10, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 11, 12, 13, 14}, b)
	b, err = w.bytes(30, 10)
	require.NoError(t, err)
	assert.Equal(t, byte(30), b[0])
	assert.Equal(t, 1, w.reads, "second range was resident")

	b, err = w.bytes(48, 5)
	require.NoError(t, err)
	assert.Equal(t, byte(48), b[0])
	assert.Equal(t, 2, w.reads)

	b, err = w.bytes(95, 20)
	require.NoError(t, err)
	assert.Len(t, b, 5, "clamped at end of file")

	b, err = w.bytes(200, 4)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestWindowSize_SharesBudgetWithMatrix(t *testing.T) {
	// 16 rows of 100 bytes; the whole budget would hold them all
	assert.Equal(t, 1600, windowSize(1600, 100, 100, 16))
	// once a 1000-byte matrix takes its share only 6 rows fit
	assert.Equal(t, 600, windowSize(1600-1000, 100, 100, 16))
	// never below one row
	assert.Equal(t, 40, windowSize(0, 100, 40, 16))
}

func TestView_BudgetHeldByMatrix(t *testing.T) {
	s := testutil.Spectrogram{NBits: 16, NChans: 32, NInts: 24, FCh1: 1000, FOff: 1,
		TStart: 0, TSamp: 1, Value: ramp}
	path := s.WriteFile(t)

	big, err := Load(path, testBudget)
	require.NoError(t, err)
	defer big.Close()
	// just the 26x34 native matrix; reads fall back to one row at a time
	tight, err := Load(path, 26*34*8)
	require.NoError(t, err)
	defer tight.Close()

	a, b := grid.NewMatrix(0, 0), grid.NewMatrix(0, 0)
	_, err = big.View(big.Meta().DataRect, a, 100, 100)
	require.NoError(t, err)
	_, err = tight.View(tight.Meta().DataRect, b, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, a.Dense().RawMatrix().Data, b.Dense().RawMatrix().Data)
	assert.InDelta(t, ramp(23, 31), debin(b, 31, 23), 1e-9)
}
