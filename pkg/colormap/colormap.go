// Package colormap provides color schemes for visualization.
package colormap

import (
	"image/color"
	"math"
	"strings"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// LinearColormap is a linear interpolation colormap.
type LinearColormap struct {
	colors []color.RGBA
}

// At returns the color at position t (0-1).
func (c LinearColormap) At(t float64) color.Color {
	return c.RGBA(t)
}

// RGBA is At without the interface conversion, for per-pixel use.
func (c LinearColormap) RGBA(t float64) color.RGBA {
	if t <= 0 || math.IsNaN(t) {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}
	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	return interpolate(c.colors[lower], c.colors[lower+1], idx-float64(lower))
}

func interpolate(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c1.R) + t*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + t*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + t*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

// Viridis colormap (matplotlib viridis)
var Viridis = LinearColormap{
	colors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}

// Plasma colormap
var Plasma = LinearColormap{
	colors: []color.RGBA{
		{13, 8, 135, 255},
		{75, 3, 161, 255},
		{125, 3, 168, 255},
		{168, 34, 150, 255},
		{203, 70, 121, 255},
		{229, 107, 93, 255},
		{248, 148, 65, 255},
		{253, 195, 40, 255},
		{240, 249, 33, 255},
	},
}

// Inferno colormap
var Inferno = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 4, 255},
		{40, 11, 84, 255},
		{101, 21, 110, 255},
		{159, 42, 99, 255},
		{212, 72, 66, 255},
		{245, 125, 21, 255},
		{250, 193, 39, 255},
		{252, 255, 164, 255},
	},
}

// Magma colormap
var Magma = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 4, 255},
		{28, 16, 68, 255},
		{79, 18, 123, 255},
		{129, 37, 129, 255},
		{181, 54, 122, 255},
		{229, 80, 100, 255},
		{251, 135, 97, 255},
		{254, 194, 135, 255},
		{252, 253, 191, 255},
	},
}

// Jet colormap
var Jet = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 128, 255},
		{0, 0, 255, 255},
		{0, 128, 255, 255},
		{0, 255, 255, 255},
		{128, 255, 128, 255},
		{255, 255, 0, 255},
		{255, 128, 0, 255},
		{255, 0, 0, 255},
		{128, 0, 0, 255},
	},
}

// Hot colormap
var Hot = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 0, 255},
		{128, 0, 0, 255},
		{255, 0, 0, 255},
		{255, 128, 0, 255},
		{255, 255, 0, 255},
		{255, 255, 128, 255},
		{255, 255, 255, 255},
	},
}

// Gray maps values to grayscale.
var Gray = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 0, 255},
		{255, 255, 255, 255},
	},
}

// names lists the colormaps in cycling order.
var names = []string{"viridis", "plasma", "inferno", "magma", "jet", "hot", "gray"}

var byName = map[string]LinearColormap{
	"viridis": Viridis,
	"plasma":  Plasma,
	"inferno": Inferno,
	"magma":   Magma,
	"jet":     Jet,
	"hot":     Hot,
	"gray":    Gray,
}

// Names returns the available colormap names in cycling order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// ByName looks up a colormap. "grey" and "grayscale" alias "gray".
func ByName(name string) (LinearColormap, bool) {
	switch strings.ToLower(name) {
	case "grey", "grayscale", "greyscale":
		name = "gray"
	}
	c, ok := byName[strings.ToLower(name)]
	return c, ok
}

// Next returns the name delta steps after name in cycling order, wrapping
// in both directions. Unknown names start from the first colormap.
func Next(name string, delta int) string {
	i := 0
	for j, n := range names {
		if n == name {
			i = j
			break
		}
	}
	n := len(names)
	return names[((i+delta)%n+n)%n]
}
