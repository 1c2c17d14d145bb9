package region

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyRange reports a start bound at or past its stop bound.
var ErrEmptyRange = errors.New("empty view range")

// ParseBound parses an axis bound. A trailing '%' makes the value a
// percentage of span measured from lo.
func ParseBound(s string, lo, span float64) (float64, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bound %q: %w", s, err)
	}
	if pct {
		v = lo + v/100*span
	}
	return v, nil
}

// ParseRange parses a start and stop bound against [lo, lo+span).
func ParseRange(start, stop string, lo, span float64) (float64, float64, error) {
	a, err := ParseBound(start, lo, span)
	if err != nil {
		return 0, 0, err
	}
	b, err := ParseBound(stop, lo, span)
	if err != nil {
		return 0, 0, err
	}
	if a >= b {
		return 0, 0, fmt.Errorf("%s >= %s: %w", start, stop, ErrEmptyRange)
	}
	return a, b, nil
}

// WithFreq returns r with its frequency range replaced by [lo, hi).
func (r Rect) WithFreq(lo, hi float64) Rect {
	r.Y, r.Height = lo, hi-lo
	return r
}

// WithTime returns r with its time range replaced by [lo, hi).
func (r Rect) WithTime(lo, hi float64) Rect {
	r.X, r.Width = lo, hi-lo
	return r
}
