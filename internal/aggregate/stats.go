package aggregate

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// maxStatSampleBytes caps the statistics scan regardless of memory.
const maxStatSampleBytes = 200_000_000

// Stats summarizes a sample of the data. It is an approximation drawn from
// the start of the file, not the full data set.
type Stats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Count int64   `json:"count"`

	sum float64
}

// NewStats returns an empty accumulator. Min and Max read as zero until the
// first sample arrives.
func NewStats() Stats {
	return Stats{}
}

// Add folds samples into the running statistics.
func (s *Stats) Add(samples []float64) {
	if len(samples) == 0 {
		return
	}
	lo, hi := floats.Min(samples), floats.Max(samples)
	if s.Count == 0 {
		s.Min, s.Max = lo, hi
	} else {
		s.Min = math.Min(s.Min, lo)
		s.Max = math.Max(s.Max, hi)
	}
	s.sum += floats.Sum(samples)
	s.Count += int64(len(samples))
	s.Mean = s.sum / float64(s.Count)
}

// Empty reports whether no samples were added.
func (s *Stats) Empty() bool { return s.Count == 0 }

// StatSamples returns how many samples the initial statistics scan may read
// given a memory budget in bytes.
func StatSamples(budget int64, nbytes int) int64 {
	n := max(budget/10, 10)
	return min(n, int64(maxStatSampleBytes/nbytes))
}

// StatShape picks a (rows, cols) block from the start of an nints x nchans
// grid holding at most limit samples, favouring whole rows.
func StatShape(limit int64, nints, nchans int) (rows, cols int) {
	if nints <= 0 || nchans <= 0 {
		return 0, 0
	}
	r := limit / int64(nchans)
	r = max(1, min(r, int64(nints)))
	c := min(max(limit/r, 1), int64(nchans))
	return int(r), int(c)
}

// WindowRows returns how many rows of rowBytes fit in budget, never fewer
// than one row and never more than rows.
func WindowRows(budget, rowBytes int64, rows int) int {
	if rowBytes <= 0 || rows <= 0 {
		return 1
	}
	n := budget / rowBytes
	return int(max(1, min(n, int64(rows))))
}
