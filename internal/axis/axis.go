// Package axis models the regularly sampled frequency and time axes of a
// waterfall file.
package axis

import (
	"math"
	"sort"
)

// edgeTolerance is the fraction of one step within which a query value is
// considered to sit exactly on a sample.
const edgeTolerance = 1e-6

// Axis is a regularly spaced sequence origin + step*i, i in [0, n).
//
// Values are kept in ascending order regardless of the sign of step so they
// can be binary searched; Descending reports whether storage order runs the
// other way. Index-returning methods are documented as either ascending or
// storage indices.
type Axis struct {
	origin float64
	step   float64
	values []float64
}

// New builds an axis of n samples. Each value is computed as origin+step*i
// with no accumulation.
func New(origin, step float64, n int) Axis {
	if n < 0 {
		n = 0
	}
	values := make([]float64, n)
	if step < 0 {
		for i := 0; i < n; i++ {
			values[n-1-i] = origin + step*float64(i)
		}
	} else {
		for i := 0; i < n; i++ {
			values[i] = origin + step*float64(i)
		}
	}
	return Axis{origin: origin, step: step, values: values}
}

// Len returns the number of samples.
func (a Axis) Len() int { return len(a.values) }

// Values returns the ascending sample values. The slice is shared.
func (a Axis) Values() []float64 { return a.values }

// Descending reports whether storage order runs from high to low values.
func (a Axis) Descending() bool { return a.step < 0 }

// Origin returns the value of storage index 0.
func (a Axis) Origin() float64 { return a.origin }

// Step returns the signed spacing between consecutive storage indices.
func (a Axis) Step() float64 { return a.step }

// At returns the value at storage index i.
func (a Axis) At(i int) float64 {
	return a.origin + a.step*float64(i)
}

// Edge returns the boundary value at storage index i, which may lie one past
// the last sample.
func (a Axis) Edge(i int) float64 {
	return a.origin + a.step*float64(i)
}

// Extent returns the low and high ends of the range covered by all cells.
func (a Axis) Extent() (lo, hi float64) {
	end := a.Edge(len(a.values))
	return math.Min(a.origin, end), math.Max(a.origin, end)
}

// Contains reports whether v falls within the axis extent.
func (a Axis) Contains(v float64) bool {
	lo, hi := a.Extent()
	return v >= lo && v <= hi
}

// Span maps the value range [lo, hi] to the half-open range of ascending
// indices whose cells overlap it. On an ascending axis a sample marks the low
// edge of its cell; on a descending axis it marks the high edge. The result
// is not clamped.
func (a Axis) Span(lo, hi float64) (ilo, ihi int) {
	tol := math.Abs(a.step) * edgeTolerance
	if a.Descending() {
		return a.upperBound(lo + tol), a.lowerBound(hi-tol) + 1
	}
	return a.upperBound(lo+tol) - 1, a.lowerBound(hi - tol)
}

// upperBound returns the first ascending index with value > v.
func (a Axis) upperBound(v float64) int {
	return sort.Search(len(a.values), func(i int) bool { return a.values[i] > v })
}

// lowerBound returns the first ascending index with value >= v.
func (a Axis) lowerBound(v float64) int {
	return sort.SearchFloat64s(a.values, v)
}

// ToStorage converts a half-open ascending index range into storage order.
func (a Axis) ToStorage(lo, hi int) (int, int) {
	if !a.Descending() {
		return lo, hi
	}
	n := len(a.values)
	return n - hi, n - lo
}
