// Package header decodes the scalar metadata block shared by the filterbank and
// HDF5 waterfall formats.
package header

import "errors"

var (
	// ErrBadSignature means the stream does not start like a filterbank header.
	ErrBadSignature = errors.New("not a filterbank header")
	// ErrUnknownKeyword means the header carries a keyword outside the fixed table.
	// The file is treated as corrupt or unsupported.
	ErrUnknownKeyword = errors.New("unsupported header keyword")
	// ErrUnsupportedBits means nbits is not one of 8, 16, 32 or 64.
	ErrUnsupportedBits = errors.New("unsupported sample bit width")
	// ErrInvalidHeader means a required field is missing or out of range.
	ErrInvalidHeader = errors.New("invalid header")
)

// Kind is the scalar type a keyword is stored as.
type Kind byte

const (
	KindInt      Kind = 'l'
	KindFloat    Kind = 'd'
	KindString   Kind = 's'
	KindAngle    Kind = 'a'
	KindSentinel Kind = '!'
)

const (
	StartKeyword = "HEADER_START"
	EndKeyword   = "HEADER_END"
)

// keywordKinds is never mutated after package init.
var keywordKinds = map[string]Kind{
	"telescope_id":  KindInt,
	"machine_id":    KindInt,
	"data_type":     KindInt,
	"barycentric":   KindInt,
	"pulsarcentric": KindInt,
	"nbits":         KindInt,
	"nsamples":      KindInt,
	"nchans":        KindInt,
	"nifs":          KindInt,
	"nbeams":        KindInt,
	"ibeam":         KindInt,
	"rawdatafile":   KindString,
	"source_name":   KindString,
	"az_start":      KindFloat,
	"za_start":      KindFloat,
	"tstart":        KindFloat,
	"tsamp":         KindFloat,
	"fch1":          KindFloat,
	"foff":          KindFloat,
	"refdm":         KindFloat,
	"period":        KindFloat,
	"src_raj":       KindAngle,
	"src_dej":       KindAngle,
	StartKeyword:    KindSentinel,
	EndKeyword:      KindSentinel,
}

// KeywordKind looks up the declared type of a header keyword.
func KeywordKind(kwd string) (Kind, bool) {
	k, ok := keywordKinds[kwd]
	return k, ok
}

// telescopes maps telescope_id to a site name; gaps are unassigned ids.
var telescopes = map[int]string{
	0:  "Fake data",
	1:  "Arecibo",
	2:  "Ooty",
	3:  "Nancay",
	4:  "Parkes",
	5:  "Jodrell",
	6:  "GBT",
	8:  "Effelsberg",
	10: "SRT",
	64: "MeerKAT",
	65: "KAT7",
}

// TelescopeName returns the site name for a telescope id, or "Unknown".
func TelescopeName(id int) string {
	if name, ok := telescopes[id]; ok {
		return name
	}
	return "Unknown"
}
