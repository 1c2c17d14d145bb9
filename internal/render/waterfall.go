// Package render draws waterfall plots using fogleman/gg.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/sxyu/watplot/internal/aggregate"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
	"github.com/sxyu/watplot/pkg/colormap"
)

const (
	colorFact     = 1.1
	colorbarWidth = 67
	colorbarGap   = 3
)

// Config contains renderer configuration.
type Config struct {
	DefaultColormap string
}

// Options control a single render.
type Options struct {
	Width    int
	Height   int
	Colormap string
	Axes     bool
}

// Plot is a computed view and the rectangle to draw from it. Render may be
// smaller than View when the view was computed with headroom for panning.
type Plot struct {
	Matrix *grid.Matrix
	View   region.Rect
	Render region.Rect
}

// Scale maps sample values to 8-bit intensities as (v + Offset) * Scale.
type Scale struct {
	Scale  float64
	Offset float64
	Log    bool
}

// AutoScale derives the default intensity mapping from file statistics:
// the minimum maps to 0 and 1.1 times the mean maps to about 70% of full
// scale. With log set the same rule applies to log10 of the values.
func AutoScale(st aggregate.Stats, log bool) Scale {
	lo, mean := st.Min, st.Mean
	if log {
		lo, mean = log10(lo), log10(mean)
		fact := math.Log10(colorFact)
		return newScale(lo-fact, mean+fact, true)
	}
	return newScale(lo/colorFact, mean*colorFact, false)
}

func newScale(lo, hi float64, log bool) Scale {
	span := hi - lo
	if !(span > 0) || math.IsInf(span, 0) {
		span = 1
	}
	return Scale{Scale: 255 / span * 0.7, Offset: -lo, Log: log}
}

// log10 clamps to 1 so zero-valued channels do not dominate.
func log10(v float64) float64 {
	return math.Log10(math.Max(v, 1))
}

// Level returns the 8-bit intensity of v.
func (s Scale) Level(v float64) uint8 {
	if s.Log {
		v = log10(v)
	}
	x := math.Round((v + s.Offset) * s.Scale)
	switch {
	case x <= 0 || math.IsNaN(x):
		return 0
	case x >= 255:
		return 255
	}
	return uint8(x)
}

// Value inverts Level for colorbar labels.
func (s Scale) Value(level float64) float64 {
	v := level/s.Scale - s.Offset
	if s.Log {
		return math.Pow(10, v)
	}
	return v
}

// WaterfallRenderer renders views to PNG images. Frequency runs along the
// horizontal axis and time runs upward.
type WaterfallRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewWaterfallRenderer creates a new renderer.
func NewWaterfallRenderer(cfg Config) *WaterfallRenderer {
	if _, ok := colormap.ByName(cfg.DefaultColormap); !ok {
		cfg.DefaultColormap = "viridis"
	}
	return &WaterfallRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256*1024))
			},
		},
	}
}

func (r *WaterfallRenderer) colormap(name string) colormap.LinearColormap {
	if c, ok := colormap.ByName(name); ok {
		return c
	}
	c, _ := colormap.ByName(r.config.DefaultColormap)
	return c
}

// Draw renders the plot into an image. With axes enabled the image is
// widened by the colorbar.
func (r *WaterfallRenderer) Draw(p Plot, sc Scale, opts Options) *image.RGBA {
	w, h := opts.Width, opts.Height
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	total := w
	if opts.Axes {
		total += colorbarGap + colorbarWidth
	}
	img := image.NewRGBA(image.Rect(0, 0, total, h))
	cmap := r.colormap(opts.Colormap)

	r.drawPixels(img, p, sc, cmap, w, h)
	if opts.Axes {
		drawColorbar(img, sc, cmap, w+colorbarGap, h)
		drawAxes(img, p.Render, w, h)
	}
	return img
}

// Render draws the plot and encodes it as PNG.
func (r *WaterfallRenderer) Render(p Plot, sc Scale, opts Options) ([]byte, error) {
	return r.encode(r.Draw(p, sc, opts))
}

// drawPixels fills the plot area, splitting rows across workers.
func (r *WaterfallRenderer) drawPixels(img *image.RGBA, p Plot, sc Scale, cmap colormap.LinearColormap, w, h int) {
	m := p.Matrix
	if m == nil || m.Width() == 0 || m.Height() == 0 || p.View.Width <= 0 || p.View.Height <= 0 {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, cmap.RGBA(0))
			}
		}
		return
	}

	// render units per pixel, then view bins per render unit
	rdt := p.Render.Width / float64(h)
	rdf := p.Render.Height / float64(w)
	vdt := p.View.Width / float64(m.Width())
	vdf := p.View.Height / float64(m.Height())
	t0 := (p.Render.X - p.View.X) / vdt
	f0 := (p.Render.Y - p.View.Y) / vdf
	ct := rdt / vdt
	rf := rdf / vdf

	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	var wg sync.WaitGroup
	for k := 0; k < workers; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			for y := k; y < h; y += workers {
				// pixel row y covers time steps [h-1-y, h-y) from the bottom
				c0 := t0 + float64(h-1-y)*ct
				c1 := c0 + ct
				for x := 0; x < w; x++ {
					r0 := f0 + float64(x)*rf
					v := m.Sample(r0, c0, r0+rf, c1)
					img.SetRGBA(x, y, cmap.RGBA(float64(sc.Level(v))/255))
				}
			}
		}(k)
	}
	wg.Wait()
}

func drawColorbar(img *image.RGBA, sc Scale, cmap colormap.LinearColormap, x0, h int) {
	for y := 0; y < h; y++ {
		level := 255 - y*256/h
		if level < 0 {
			level = 0
		}
		c := cmap.RGBA(float64(level) / 255)
		for x := x0; x < x0+colorbarWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(color.White)
	for i := 16; i < 255; i += 32 {
		v := sc.Value(float64(i))
		if !sc.Log {
			v /= 1e9
		}
		y := float64(h*(255-i)/255 + 5)
		dc.DrawString(formatTick(v), float64(x0+10), y)
	}
}

// drawAxes labels frequency along the bottom edge and time up the left edge.
func drawAxes(img *image.RGBA, rect region.Rect, w, h int) {
	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(basicfont.Face7x13)
	rdt := rect.Width / float64(h)
	rdf := rect.Height / float64(w)

	dc.SetColor(color.White)
	if step := w / 6; step > 0 {
		for i := 30; i < w-10; i += step {
			dc.DrawString(formatTick(float64(i)*rdf+rect.Y), float64(i), float64(h-15))
		}
	}
	if step := h / 10; step > 0 {
		for i := 50; i < h-10; i += step {
			dc.DrawString(formatTick(float64(i)*rdt+rect.X), 10, float64(h-i))
		}
	}

	dc.SetRGB255(255, 50, 50)
	dc.DrawString("MHz", float64(w-45), float64(h-35))
	dc.DrawString("s", 74, 30)
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (r *WaterfallRenderer) encode(img image.Image) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
