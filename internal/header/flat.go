package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// maxKeywordLen bounds keyword length prefixes; anything longer means we are
// not looking at a filterbank header.
const maxKeywordLen = 80

// maxStringLen bounds string payloads such as source_name.
const maxStringLen = 1 << 16

var byteOrder = binary.LittleEndian

// flatReader tracks how many header bytes have been consumed.
type flatReader struct {
	r   io.Reader
	n   int64
	buf [8]byte
}

func (fr *flatReader) read(p []byte) error {
	n, err := io.ReadFull(fr.r, p)
	fr.n += int64(n)
	return err
}

func (fr *flatReader) uint32() (uint32, error) {
	if err := fr.read(fr.buf[:4]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(fr.buf[:4]), nil
}

func (fr *flatReader) float64() (float64, error) {
	if err := fr.read(fr.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(byteOrder.Uint64(fr.buf[:8])), nil
}

// lengthPrefixed reads a length-prefixed string of minLen to maxLen bytes.
// Keywords are never empty; string values may be.
func (fr *flatReader) lengthPrefixed(minLen, maxLen uint32) (string, error) {
	n, err := fr.uint32()
	if err != nil {
		return "", err
	}
	if n < minLen || n > maxLen {
		return "", fmt.Errorf("%w: length prefix %d", ErrBadSignature, n)
	}
	b := make([]byte, n)
	if err := fr.read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFlat parses a filterbank keyword header from r. It returns the decoded
// header and the number of bytes consumed, which is the offset of the first
// data sample. r must be positioned at the start of the file.
func ReadFlat(r io.Reader) (Header, int64, error) {
	h := New()
	fr := &flatReader{r: r}

	kwd, err := fr.lengthPrefixed(1, maxKeywordLen)
	if err != nil {
		return h, fr.n, signatureError(err)
	}
	if kwd != StartKeyword {
		return h, fr.n, fmt.Errorf("%w: first keyword %q", ErrBadSignature, kwd)
	}

	for {
		kwd, err := fr.lengthPrefixed(1, maxKeywordLen)
		if err != nil {
			return h, fr.n, truncatedError(err)
		}
		done, err := fr.readValue(&h, kwd)
		if err != nil {
			return h, fr.n, err
		}
		if done {
			return h, fr.n, nil
		}
	}
}

// readValue decodes the payload for kwd into h. It reports true once the end
// sentinel has been read.
func (fr *flatReader) readValue(h *Header, kwd string) (bool, error) {
	kind, ok := KeywordKind(kwd)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKeyword, kwd)
	}

	switch kind {
	case KindSentinel:
		if kwd == EndKeyword {
			return true, nil
		}
		return false, fmt.Errorf("%w: repeated %s", ErrBadSignature, kwd)
	case KindInt:
		v, err := fr.uint32()
		if err != nil {
			return false, truncatedError(err)
		}
		h.setInt(kwd, int(int32(v)))
	case KindFloat:
		v, err := fr.float64()
		if err != nil {
			return false, truncatedError(err)
		}
		h.setFloat(kwd, v)
	case KindString:
		v, err := fr.lengthPrefixed(0, maxStringLen)
		if err != nil {
			return false, truncatedError(err)
		}
		h.setString(kwd, v)
	case KindAngle:
		v, err := fr.float64()
		if err != nil {
			return false, truncatedError(err)
		}
		h.setAngle(kwd, v)
	}
	return false, nil
}

func signatureError(err error) error {
	if errors.Is(err, ErrBadSignature) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBadSignature, err)
}

func truncatedError(err error) error {
	if errors.Is(err, ErrBadSignature) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: header truncated before %s", ErrInvalidHeader, EndKeyword)
	}
	return err
}
