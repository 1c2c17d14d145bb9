// Package grid holds the padded output matrix produced by a view and the
// prefix-sum queries run against it.
package grid

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an (h+2)x(w+2) row-major matrix with one row and column of zero
// padding on each side of an h x w interior. Rows run along frequency and
// columns along time. Interior bin (j, i) lives at padded (j+1, i+1).
//
// A Matrix is owned by one caller and reused across views; it is not safe for
// concurrent mutation.
type Matrix struct {
	d   *mat.Dense
	buf []float64
	h   int
	w   int
}

// NewMatrix allocates a zeroed matrix with an h x w interior.
func NewMatrix(h, w int) *Matrix {
	m := &Matrix{}
	m.Reset(h, w)
	return m
}

// Reset resizes the matrix to an h x w interior and zeroes it, reusing the
// backing array when it is large enough.
func (m *Matrix) Reset(h, w int) {
	if h < 0 {
		h = 0
	}
	if w < 0 {
		w = 0
	}
	n := (h + 2) * (w + 2)
	if cap(m.buf) < n {
		m.buf = make([]float64, n)
	} else {
		m.buf = m.buf[:n]
		for i := range m.buf {
			m.buf[i] = 0
		}
	}
	m.h, m.w = h, w
	m.d = mat.NewDense(h+2, w+2, m.buf)
}

// Height returns the number of interior rows (frequency bins).
func (m *Matrix) Height() int { return m.h }

// Width returns the number of interior columns (time bins).
func (m *Matrix) Width() int { return m.w }

// Rows returns the padded row count.
func (m *Matrix) Rows() int { return m.h + 2 }

// Cols returns the padded column count.
func (m *Matrix) Cols() int { return m.w + 2 }

// Bytes returns the size of the padded matrix in bytes.
func (m *Matrix) Bytes() int64 { return int64(m.Rows()) * int64(m.Cols()) * 8 }

// At returns the padded cell (r, c).
func (m *Matrix) At(r, c int) float64 { return m.d.At(r, c) }

// Set stores v at padded cell (r, c).
func (m *Matrix) Set(r, c int, v float64) { m.d.Set(r, c, v) }

// Bin returns interior bin (j, i).
func (m *Matrix) Bin(j, i int) float64 { return m.d.At(j+1, i+1) }

// SetBin stores v at interior bin (j, i).
func (m *Matrix) SetBin(j, i int, v float64) { m.d.Set(j+1, i+1, v) }

// AddBin adds v to interior bin (j, i).
func (m *Matrix) AddBin(j, i int, v float64) {
	m.buf[(j+1)*(m.w+2)+i+1] += v
}

// Dense exposes the padded matrix.
func (m *Matrix) Dense() *mat.Dense { return m.d }

// ReverseRows reverses the order of the interior rows.
func (m *Matrix) ReverseRows() {
	cols := m.w + 2
	for a, b := 1, m.h; a < b; a, b = a+1, b-1 {
		ra := m.buf[a*cols : (a+1)*cols]
		rb := m.buf[b*cols : (b+1)*cols]
		for c := range ra {
			ra[c], rb[c] = rb[c], ra[c]
		}
	}
}

// ReverseCols reverses the order of the interior columns.
func (m *Matrix) ReverseCols() {
	cols := m.w + 2
	for r := 1; r <= m.h; r++ {
		row := m.buf[r*cols : (r+1)*cols]
		for a, b := 1, m.w; a < b; a, b = a+1, b-1 {
			row[a], row[b] = row[b], row[a]
		}
	}
}

// PrefixSum turns bin sums into a 2D cumulative sum of bin means. Each column
// is accumulated first, dividing every cell by area as it is added, and the
// row pass then accumulates the column sums. The order matters numerically.
func (m *Matrix) PrefixSum(area float64) {
	rows, cols := m.h+2, m.w+2
	if area <= 0 {
		area = 1
	}
	for c := 0; c < cols; c++ {
		m.buf[c] /= area
	}
	for r := 1; r < rows; r++ {
		prev := m.buf[(r-1)*cols : r*cols]
		row := m.buf[r*cols : (r+1)*cols]
		for c := range row {
			row[c] = prev[c] + row[c]/area
		}
	}
	for r := 0; r < rows; r++ {
		row := m.buf[r*cols : (r+1)*cols]
		for c := 1; c < cols; c++ {
			row[c] += row[c-1]
		}
	}
}

// RectSum returns the sum over interior bins [j0, j1) x [i0, i1) of a
// prefix-summed matrix.
func (m *Matrix) RectSum(j0, i0, j1, i1 int) float64 {
	return m.d.At(j1, i1) - m.d.At(j0, i1) - m.d.At(j1, i0) + m.d.At(j0, i0)
}

// RectMean returns the mean over interior bins [j0, j1) x [i0, i1) of a
// prefix-summed matrix, or 0 for an empty range.
func (m *Matrix) RectMean(j0, i0, j1, i1 int) float64 {
	area := (j1 - j0) * (i1 - i0)
	if area <= 0 {
		return 0
	}
	return m.RectSum(j0, i0, j1, i1) / float64(area)
}

// Sample returns the mean over a fractional rectangle of a prefix-summed
// matrix, with corners given in prefix coordinates (row r covers bins before
// r). The result blends the largest integer rectangle inside the query with
// the smallest one containing it, weighted by the uncovered fraction.
func (m *Matrix) Sample(r0, c0, r1, c1 float64) float64 {
	maxR, maxC := float64(m.h+1), float64(m.w+1)
	r0 = math.Max(r0, 0)
	c0 = math.Max(c0, 0)
	r1 = math.Min(r1, maxR)
	c1 = math.Min(c1, maxC)
	if r1 <= 0 || c1 <= 0 || r0 >= maxR || c0 >= maxC {
		return 0
	}
	area := (r1 - r0) * (c1 - c0)
	if area <= 0 {
		return 0
	}

	ir0, ic0 := int(math.Ceil(r0)), int(math.Ceil(c0))
	ir1, ic1 := int(r1), int(c1)
	or0, oc0 := int(r0), int(c0)
	or1, oc1 := int(math.Ceil(r1)), int(math.Ceil(c1))

	areaInner := float64((ir1 - ir0) * (ic1 - ic0))
	areaOuter := math.Max(float64((or1-or0)*(oc1-oc0)), area)

	outer := m.RectSum(or0, oc0, or1, oc1) / areaOuter
	if ir1 <= ir0 || ic1 <= ic0 {
		return outer
	}
	inner := m.RectSum(ir0, ic0, ir1, ic1) / areaInner

	fo := (area - areaInner) / areaOuter
	return fo*outer + (1-fo)*inner
}
