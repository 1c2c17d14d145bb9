package axis

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ExactValues(t *testing.T) {
	tests := []struct {
		name   string
		origin float64
		step   float64
		n      int
	}{
		{"ascending time", 57650.78, 18.253611008, 16},
		{"descending freq", 8421.38671875, -2.7939677238464355e-06, 1024},
		{"ascending freq", 1100.0, 0.5, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.origin, tt.step, tt.n)
			require.Equal(t, tt.n, a.Len())
			assert.True(t, sort.Float64sAreSorted(a.Values()))

			for i := 0; i < tt.n; i++ {
				assert.Equal(t, tt.origin+tt.step*float64(i), a.At(i))
			}
			// every storage value appears in the ascending slice bit-for-bit
			for i := 0; i < tt.n; i++ {
				k := i
				if a.Descending() {
					k = tt.n - 1 - i
				}
				assert.Equal(t, tt.origin+tt.step*float64(i), a.Values()[k])
			}
		})
	}
}

func TestDescendingScenario(t *testing.T) {
	a := New(1000.0, -1.0, 4)
	assert.True(t, a.Descending())
	assert.Equal(t, []float64{997, 998, 999, 1000}, a.Values())

	lo, hi := a.Extent()
	assert.Equal(t, 996.0, lo)
	assert.Equal(t, 1000.0, hi)

	ilo, ihi := a.Span(998, 1000)
	assert.Equal(t, 2, ilo)
	assert.Equal(t, 4, ihi)

	slo, shi := a.ToStorage(ilo, ihi)
	assert.Equal(t, 0, slo)
	assert.Equal(t, 2, shi)
}

func TestSpan_Ascending(t *testing.T) {
	a := New(10, 2, 5) // cells [10,12) [12,14) [14,16) [16,18) [18,20)

	tests := []struct {
		lo, hi   float64
		wlo, whi int
	}{
		{10, 20, 0, 5},
		{12, 16, 1, 3},
		{13, 15, 1, 3},
		{13, 13.5, 1, 2},
		{0, 100, -1, 5},
		{19.5, 19.9, 4, 5},
	}
	for _, tt := range tests {
		lo, hi := a.Span(tt.lo, tt.hi)
		assert.Equal(t, tt.wlo, lo, "lo for [%v, %v]", tt.lo, tt.hi)
		assert.Equal(t, tt.whi, hi, "hi for [%v, %v]", tt.lo, tt.hi)
	}
}

func TestSpan_RoundTripEdges(t *testing.T) {
	for _, a := range []Axis{New(1500, 0.3, 50), New(1500, -0.3, 50), New(0.25, 1e-3, 1000)} {
		n := a.Len()
		for _, r := range [][2]int{{0, n}, {3, 17}, {10, 11}, {0, 1}, {n - 1, n}} {
			e0, e1 := a.Edge(r[0]), a.Edge(r[1])
			lo, hi := a.Span(min(e0, e1), max(e0, e1))
			slo, shi := a.ToStorage(lo, hi)
			assert.Equal(t, r[0], slo, "step %v range %v", a.Step(), r)
			assert.Equal(t, r[1], shi, "step %v range %v", a.Step(), r)
		}
	}
}

func TestContains(t *testing.T) {
	a := New(100, -10, 3) // extent [70, 100]
	assert.True(t, a.Contains(70))
	assert.True(t, a.Contains(85))
	assert.True(t, a.Contains(100))
	assert.False(t, a.Contains(69.9))
	assert.False(t, a.Contains(100.1))
}

func TestEmptyAxis(t *testing.T) {
	a := New(5, 1, 0)
	assert.Equal(t, 0, a.Len())
	lo, hi := a.Extent()
	assert.Equal(t, 5.0, lo)
	assert.Equal(t, 5.0, hi)
}
