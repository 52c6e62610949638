package echogram

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Default color scale limits in dB.
const (
	DefaultVmin = -80.0
	DefaultVmax = -30.0
)

// viridis anchor colors, low to high.
var palette = []color.RGBA{
	{68, 1, 84, 255},
	{59, 82, 139, 255},
	{33, 145, 140, 255},
	{94, 201, 98, 255},
	{253, 231, 37, 255},
}

// Color maps v onto the palette between vmin and vmax. NaN is transparent.
func Color(v, vmin, vmax float64) color.RGBA {
	if math.IsNaN(v) {
		return color.RGBA{}
	}
	f := (v - vmin) / (vmax - vmin)
	if f <= 0 {
		return palette[0]
	}
	if f >= 1 {
		return palette[len(palette)-1]
	}
	pos := f * float64(len(palette)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := palette[i], palette[i+1]
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*frac + 0.5) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// Image draws g with time left to right and range increasing downward.
func (g *Grid) Image(vmin, vmax float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, len(g.Times), len(g.Ranges)))
	for x := range g.Sv {
		for y, v := range g.Sv[x] {
			img.SetRGBA(x, y, Color(v, vmin, vmax))
		}
	}
	return img
}

// Render writes g to w as a PNG.
func Render(w io.Writer, g *Grid, vmin, vmax float64) error {
	if len(g.Times) == 0 || len(g.Ranges) == 0 {
		return errors.Errorf("channel %s has an empty grid", g.Channel)
	}
	return errors.Wrap(png.Encode(w, g.Image(vmin, vmax)), "encoding png")
}
