// Package testutil builds synthetic waterfall files for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// FlatHeader accumulates a filterbank keyword header.
type FlatHeader struct {
	buf bytes.Buffer
}

// NewFlatHeader starts a header with the HEADER_START sentinel.
func NewFlatHeader() *FlatHeader {
	h := &FlatHeader{}
	h.Keyword("HEADER_START")
	return h
}

// Keyword writes a bare length-prefixed keyword.
func (h *FlatHeader) Keyword(kwd string) *FlatHeader {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(kwd)))
	h.buf.Write(n[:])
	h.buf.WriteString(kwd)
	return h
}

// Int writes an int32 keyword.
func (h *FlatHeader) Int(kwd string, v int32) *FlatHeader {
	h.Keyword(kwd)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	h.buf.Write(b[:])
	return h
}

// Float writes a float64 keyword; also used for packed angles.
func (h *FlatHeader) Float(kwd string, v float64) *FlatHeader {
	h.Keyword(kwd)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	h.buf.Write(b[:])
	return h
}

// String writes a length-prefixed string keyword.
func (h *FlatHeader) String(kwd, v string) *FlatHeader {
	h.Keyword(kwd)
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(v)))
	h.buf.Write(n[:])
	h.buf.WriteString(v)
	return h
}

// End appends HEADER_END and returns the encoded header.
func (h *FlatHeader) End() []byte {
	h.Keyword("HEADER_END")
	return h.buf.Bytes()
}

// Spectrogram describes a synthetic filterbank file.
type Spectrogram struct {
	NBits  int
	NChans int
	NInts  int
	FCh1   float64
	FOff   float64
	TStart float64
	TSamp  float64
	// Value returns the sample stored at (time, channel) in storage order.
	Value func(t, f int) float64
}

// Header encodes the spectrogram's filterbank header.
func (s Spectrogram) Header() []byte {
	return NewFlatHeader().
		Int("telescope_id", 6).
		Int("machine_id", 10).
		String("source_name", "TEST_SRC").
		Float("src_raj", 123456.5).
		Float("src_dej", -301500.0).
		Float("tstart", s.TStart).
		Float("tsamp", s.TSamp).
		Float("fch1", s.FCh1).
		Float("foff", s.FOff).
		Int("nbits", int32(s.NBits)).
		Int("nchans", int32(s.NChans)).
		Int("nifs", 1).
		End()
}

// Samples encodes the raw sample block in time-major order.
func (s Spectrogram) Samples() []byte {
	nb := s.NBits / 8
	out := make([]byte, s.NInts*s.NChans*nb)
	off := 0
	for t := 0; t < s.NInts; t++ {
		for f := 0; f < s.NChans; f++ {
			v := s.Value(t, f)
			switch s.NBits {
			case 8:
				out[off] = uint8(v)
			case 16:
				binary.LittleEndian.PutUint16(out[off:], uint16(v))
			case 32:
				binary.LittleEndian.PutUint32(out[off:], math.Float32bits(float32(v)))
			case 64:
				binary.LittleEndian.PutUint64(out[off:], math.Float64bits(v))
			}
			off += nb
		}
	}
	return out
}

// WriteFile writes the spectrogram to a .fil file under t.TempDir.
func (s Spectrogram) WriteFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.fil")
	data := append(s.Header(), s.Samples()...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write filterbank fixture: %v", err)
	}
	return path
}
