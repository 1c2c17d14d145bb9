package aggregate

import (
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
)

// Binner accumulates raw samples into the bins of a resolution. Samples are
// fed in storage order; Finish restores ascending order and applies the
// prefix pass.
type Binner struct {
	res  region.Resolution
	out  *grid.Matrix
	maxT int
	maxF int
}

// NewBinner resets out to the resolution's dimensions. nints and nchans bound
// the readable region, so a trailing bin that runs past the end of the file
// only receives the samples that exist.
func NewBinner(res region.Resolution, nints, nchans int, out *grid.Matrix) *Binner {
	out.Reset(res.OutH, res.OutW)
	b := &Binner{
		res:  res,
		out:  out,
		maxT: min(res.THi, nints),
		maxF: min(res.FHi, nchans),
	}
	if res.Empty() {
		b.maxT, b.maxF = res.TLo, res.FLo
	}
	return b
}

// TimeRange returns the storage time indices [lo, hi) that hold data.
func (b *Binner) TimeRange() (lo, hi int) { return b.res.TLo, b.maxT }

// FreqRange returns the storage channel indices [lo, hi) that hold data.
func (b *Binner) FreqRange() (lo, hi int) { return b.res.FLo, b.maxF }

// ReadBudget returns what is left of budget for read buffers once the output
// matrix is allocated. It is zero when the matrix alone uses the budget.
func (b *Binner) ReadBudget(budget int64) int64 {
	return max(budget-b.out.Bytes(), 0)
}

// Resolution returns the resolution being filled.
func (b *Binner) Resolution() region.Resolution { return b.res }

// AddRow adds the samples of time index t for channels starting at the low
// end of FreqRange. Every FStep consecutive samples fold into one bin; a
// shorter run at the end goes into its own bin.
func (b *Binner) AddRow(t int, samples []float64) {
	if t < b.res.TLo || t >= b.maxT {
		return
	}
	if n := b.maxF - b.res.FLo; len(samples) > n {
		samples = samples[:n]
	}
	i := (t - b.res.TLo) / b.res.TStep
	step := b.res.FStep
	for k := 0; k < len(samples); k += step {
		end := min(k+step, len(samples))
		var sum float64
		for _, v := range samples[k:end] {
			sum += v
		}
		b.out.AddBin(k/step, i, sum)
	}
}

// Add adds v to the bin holding storage sample (t, f).
func (b *Binner) Add(t, f int, v float64) {
	if t < b.res.TLo || t >= b.maxT || f < b.res.FLo || f >= b.maxF {
		return
	}
	b.out.AddBin((f-b.res.FLo)/b.res.FStep, (t-b.res.TLo)/b.res.TStep, v)
}

// Finish reverses descending axes so row 0 is the lowest frequency and
// column 0 the earliest time, then converts bin sums into the prefix-summed
// matrix of bin means.
func (b *Binner) Finish() *grid.Matrix {
	if b.res.FDesc {
		b.out.ReverseRows()
	}
	if b.res.TDesc {
		b.out.ReverseCols()
	}
	b.out.PrefixSum(b.res.Area())
	return b.out
}
