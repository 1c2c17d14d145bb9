// Package region converts real-valued view rectangles into sample index
// bounds and bin steps over a file's storage order.
package region

import (
	"fmt"
	"math"

	"github.com/sxyu/watplot/internal/axis"
)

// Rect is an axis-aligned rectangle in (time, frequency) space. X and Width
// run along time, Y and Height along frequency.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxX returns the high time edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the high frequency edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Normalize flips negative widths and heights.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X, r.Width = r.X+r.Width, -r.Width
	}
	if r.Height < 0 {
		r.Y, r.Height = r.Y+r.Height, -r.Height
	}
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("[t %g..%g, f %g..%g]", r.X, r.MaxX(), r.Y, r.MaxY())
}

// Resolution is the outcome of resolving a rectangle against a file's axes.
// All index bounds are half-open and in storage order. THi and FHi may run
// past the end of the file after rounding to whole bins.
type Resolution struct {
	TLo, THi, TStep int
	FLo, FHi, FStep int

	// OutW and OutH are the interior dimensions of the output grid.
	OutW, OutH int

	// TDesc and FDesc record whether storage order is descending.
	TDesc, FDesc bool

	// Rect is the region actually covered by the bins.
	Rect Rect
}

// Empty reports whether the resolution covers no samples.
func (r Resolution) Empty() bool { return r.OutW == 0 || r.OutH == 0 }

// Area is the number of raw samples per full bin.
func (r Resolution) Area() float64 { return float64(r.TStep) * float64(r.FStep) }

// Native reports whether the resolution covers [0, nints) x [0, nchans) at
// step 1 on both axes.
func (r Resolution) Native(nints, nchans int) bool {
	return r.TStep == 1 && r.FStep == 1 &&
		r.TLo == 0 && r.THi == nints &&
		r.FLo == 0 && r.FHi == nchans
}

type span struct {
	lo, hi, step, out int
	edgeLo, edgeHi    float64
}

// Resolve maps rect onto index bounds over the given axes so that the output
// grid is at most maxW bins wide (time) and maxH bins high (frequency).
// Non-positive limits are treated as 1. A rectangle outside the data extent
// on either axis yields an empty resolution.
func Resolve(times, freqs axis.Axis, rect Rect, maxW, maxH int) Resolution {
	rect = rect.Normalize()

	ts, tok := resolveAxis(times, rect.X, rect.MaxX(), maxW)
	fs, fok := resolveAxis(freqs, rect.Y, rect.MaxY(), maxH)
	if !tok || !fok {
		return Resolution{TStep: 1, FStep: 1, TDesc: times.Descending(), FDesc: freqs.Descending()}
	}

	return Resolution{
		TLo: ts.lo, THi: ts.hi, TStep: ts.step,
		FLo: fs.lo, FHi: fs.hi, FStep: fs.step,
		OutW: ts.out, OutH: fs.out,
		TDesc: times.Descending(), FDesc: freqs.Descending(),
		Rect: Rect{
			X:      ts.edgeLo,
			Y:      fs.edgeLo,
			Width:  ts.edgeHi - ts.edgeLo,
			Height: fs.edgeHi - fs.edgeLo,
		},
	}
}

func resolveAxis(a axis.Axis, lo, hi float64, limit int) (span, bool) {
	n := a.Len()
	if n == 0 {
		return span{}, false
	}
	extLo, extHi := a.Extent()
	if hi < extLo || lo > extHi || math.IsNaN(lo) || math.IsNaN(hi) {
		return span{}, false
	}

	ilo, ihi := a.Span(lo, hi)
	if ilo < 0 {
		ilo = 0
	}
	if ilo > n-1 {
		ilo = n - 1
	}
	if ihi > n {
		ihi = n
	}
	if ihi <= ilo {
		ihi = ilo + 1
	}

	if limit < 1 {
		limit = 1
	}
	step := (ihi - ilo + limit - 1) / limit
	if step < 1 {
		step = 1
	}

	slo, shi := a.ToStorage(ilo, ihi)
	if slo < 0 {
		slo = 0
	}
	bins := (shi - slo + step - 1) / step
	shi = slo + bins*step

	e0, e1 := a.Edge(slo), a.Edge(shi)
	return span{
		lo:     slo,
		hi:     shi,
		step:   step,
		out:    bins,
		edgeLo: math.Min(e0, e1),
		edgeHi: math.Max(e0, e1),
	}, true
}
