package header

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
)

// Header is the canonical metadata record for a waterfall file.
type Header struct {
	TelescopeID int    `json:"telescope_id"`
	MachineID   int    `json:"machine_id"`
	DataType    int    `json:"data_type"`
	RawDataFile string `json:"rawdatafile"`
	SourceName  string `json:"source_name"`

	Barycentric   bool `json:"barycentric"`
	Pulsarcentric bool `json:"pulsarcentric"`

	AzStart float64 `json:"az_start"` // degrees
	ZaStart float64 `json:"za_start"` // degrees
	SrcRAJ  float64 `json:"src_raj"`  // hours
	SrcDEJ  float64 `json:"src_dej"`  // degrees
	TStart  float64 `json:"tstart"`   // MJD of first sample
	TSamp   float64 `json:"tsamp"`    // seconds
	FCh1    float64 `json:"fch1"`     // MHz
	FOff    float64 `json:"foff"`     // MHz
	RefDM   float64 `json:"refdm"`
	Period  float64 `json:"period"`

	NBits    int `json:"nbits"`
	NSamples int `json:"nsamples"`
	NChans   int `json:"nchans"`
	NIFs     int `json:"nifs"`
	NBeams   int `json:"nbeams"`
	IBeam    int `json:"ibeam"`
}

// New returns a header with every field unset.
func New() Header {
	nan := math.NaN()
	return Header{
		TelescopeID: -1,
		MachineID:   -1,
		DataType:    -1,
		AzStart:     nan,
		ZaStart:     nan,
		SrcRAJ:      nan,
		SrcDEJ:      nan,
		TStart:      nan,
		TSamp:       nan,
		FCh1:        nan,
		FOff:        nan,
		RefDM:       nan,
		Period:      nan,
		NBits:       -1,
		NSamples:    -1,
		NChans:      -1,
		NIFs:        -1,
		NBeams:      -1,
		IBeam:       -1,
	}
}

func (h *Header) setInt(kwd string, v int) {
	switch kwd {
	case "telescope_id":
		h.TelescopeID = v
	case "machine_id":
		h.MachineID = v
	case "data_type":
		h.DataType = v
	case "barycentric":
		h.Barycentric = v != 0
	case "pulsarcentric":
		h.Pulsarcentric = v != 0
	case "nbits":
		h.NBits = v
	case "nsamples":
		h.NSamples = v
	case "nchans":
		h.NChans = v
	case "nifs":
		h.NIFs = v
	case "nbeams":
		h.NBeams = v
	case "ibeam":
		h.IBeam = v
	}
}

func (h *Header) setFloat(kwd string, v float64) {
	switch kwd {
	case "az_start":
		h.AzStart = v
	case "za_start":
		h.ZaStart = v
	case "tstart":
		h.TStart = v
	case "tsamp":
		h.TSamp = v
	case "fch1":
		h.FCh1 = v
	case "foff":
		h.FOff = v
	case "refdm":
		h.RefDM = v
	case "period":
		h.Period = v
	}
}

func (h *Header) setString(kwd, v string) {
	switch kwd {
	case "rawdatafile":
		h.RawDataFile = v
	case "source_name":
		h.SourceName = v
	}
}

func (h *Header) setAngle(kwd string, packed float64) {
	v := DecodeAngle(packed)
	switch kwd {
	case "src_raj":
		h.SrcRAJ = v
	case "src_dej":
		h.SrcDEJ = v
	}
}

// DecodeAngle converts a packed sexagesimal value (ddmmss.s or hhmmss.s) to
// decimal degrees or hours.
func DecodeAngle(packed float64) float64 {
	negative := packed < 0
	a := math.Abs(packed)

	dd := math.Floor(a / 10000.0)
	a -= 10000.0 * dd
	mm := math.Floor(a / 100.0)
	ss := a - 100.0*mm
	dd += mm/60.0 + ss/3600.0

	if negative {
		dd = -dd
	}
	return dd
}

// BytesPerSample returns nbits/8.
func (h *Header) BytesPerSample() int {
	return h.NBits / 8
}

// TelescopeName returns the site name for the header's telescope id.
func (h *Header) TelescopeName() string {
	return TelescopeName(h.TelescopeID)
}

// Validate rejects headers that would make axis construction undefined.
// Missing tstart/tsamp are filled with 0 and 1 so files lacking a time
// axis can still be viewed by integration index.
func (h *Header) Validate() error {
	switch h.NBits {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("%w: %d (supported: 8, 16, 32, 64)", ErrUnsupportedBits, h.NBits)
	}
	if h.NChans <= 0 {
		return fmt.Errorf("%w: nchans=%d", ErrInvalidHeader, h.NChans)
	}
	if !isFinite(h.FCh1) || !isFinite(h.FOff) || h.FOff == 0 {
		return fmt.Errorf("%w: frequency axis fch1=%v foff=%v", ErrInvalidHeader, h.FCh1, h.FOff)
	}
	if !isFinite(h.TStart) {
		log.Printf("[Header] tstart missing, time axis starts at 0")
		h.TStart = 0
	}
	if !isFinite(h.TSamp) || h.TSamp == 0 {
		log.Printf("[Header] tsamp missing or zero, using 1s integrations")
		h.TSamp = 1
	}
	return nil
}

// Fields returns every header value keyed by keyword. Unset floats and
// negative unset integers map to nil.
func (h *Header) Fields() map[string]interface{} {
	num := func(v float64) interface{} {
		if !isFinite(v) {
			return nil
		}
		return v
	}
	count := func(v int) interface{} {
		if v < 0 {
			return nil
		}
		return v
	}
	return map[string]interface{}{
		"telescope_id":  count(h.TelescopeID),
		"machine_id":    count(h.MachineID),
		"data_type":     count(h.DataType),
		"barycentric":   h.Barycentric,
		"pulsarcentric": h.Pulsarcentric,
		"rawdatafile":   h.RawDataFile,
		"source_name":   h.SourceName,
		"az_start":      num(h.AzStart),
		"za_start":      num(h.ZaStart),
		"src_raj":       num(h.SrcRAJ),
		"src_dej":       num(h.SrcDEJ),
		"tstart":        num(h.TStart),
		"tsamp":         num(h.TSamp),
		"fch1":          num(h.FCh1),
		"foff":          num(h.FOff),
		"refdm":         num(h.RefDM),
		"period":        num(h.Period),
		"nbits":         count(h.NBits),
		"nsamples":      count(h.NSamples),
		"nchans":        count(h.NChans),
		"nifs":          count(h.NIFs),
		"nbeams":        count(h.NBeams),
		"ibeam":         count(h.IBeam),
	}
}

// MarshalJSON encodes the header with unset fields as null, since NaN has
// no JSON form.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Fields())
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Summary writes a human-readable description of the header.
func (h *Header) Summary(w io.Writer) {
	fmt.Fprintf(w, "Data from:\t%s\n", h.TelescopeName())
	fmt.Fprintf(w, "Source:\t\t%s\n", h.SourceName)
	fmt.Fprintf(w, "Raw file:\t%s\n", h.RawDataFile)
	if isFinite(h.SrcRAJ) && isFinite(h.SrcDEJ) {
		fmt.Fprintf(w, "Position:\tRA %.6f h, Dec %.6f deg\n", h.SrcRAJ, h.SrcDEJ)
	}
	fmt.Fprintf(w, "Start (MJD):\t%.9f\n", h.TStart)
	fmt.Fprintf(w, "Sample time:\t%g s\n", h.TSamp)
	fmt.Fprintf(w, "Channels:\t%d (fch1=%g MHz, foff=%g MHz)\n", h.NChans, h.FCh1, h.FOff)
	fmt.Fprintf(w, "Bits/sample:\t%d\n", h.NBits)
	fmt.Fprintf(w, "IFs:\t\t%d\n", h.NIFs)
}
