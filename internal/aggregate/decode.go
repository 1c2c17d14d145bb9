// Package aggregate bins raw waterfall samples into a padded prefix-sum
// matrix and computes approximate file statistics.
package aggregate

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sxyu/watplot/internal/header"
)

// ByteScale is applied to 8-bit samples at read time so that byte data spans
// a range comparable to 16-bit data.
const ByteScale = 256

// CheckBits rejects sample widths the decoder cannot handle.
func CheckBits(nbits int) error {
	switch nbits {
	case 8, 16, 32, 64:
		return nil
	}
	return fmt.Errorf("%w: %d", header.ErrUnsupportedBits, nbits)
}

// Decode converts little-endian raw samples into dst and returns the number
// of samples written, which is bounded by both len(dst) and len(raw).
//
//	 8 bits: uint8, scaled by ByteScale
//	16 bits: uint16
//	32 bits: float32
//	64 bits: float64
func Decode(dst []float64, raw []byte, nbits int) (int, error) {
	if err := CheckBits(nbits); err != nil {
		return 0, err
	}
	nbytes := nbits / 8
	n := len(raw) / nbytes
	if n > len(dst) {
		n = len(dst)
	}

	switch nbits {
	case 8:
		for i := 0; i < n; i++ {
			dst[i] = float64(raw[i]) * ByteScale
		}
	case 16:
		for i := 0; i < n; i++ {
			dst[i] = float64(binary.LittleEndian.Uint16(raw[2*i:]))
		}
	case 32:
		for i := 0; i < n; i++ {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
		}
	case 64:
		for i := 0; i < n; i++ {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
	}
	return n, nil
}

// Scale converts an already typed sample value to the common float64 scale.
// Backends whose readers return native numeric slices use it in place of
// Decode.
func Scale(v float64, nbits int) float64 {
	if nbits == 8 {
		return v * ByteScale
	}
	return v
}
