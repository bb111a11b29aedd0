package app

import (
	"image/color"
	"math"
)

// HSV represents a color in HSV color space
type HSV struct {
	H float64 // Hue [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value [0-1]
}

// RGB converts HSV color space to RGB
func (hsv HSV) RGB() color.Color {
	h := hsv.H
	s := hsv.S
	v := hsv.V

	if s <= 0.0 {
		rgb := uint8(v * 255)
		return color.RGBA{R: rgb, G: rgb, B: rgb, A: 0xff}
	}

	h = math.Mod(h, 360) / 60
	i := math.Floor(h)
	f := h - i

	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}

// magnitudeColor maps a normalized magnitude [0,1] to a cold-to-hot color:
// hue runs blue (240) down to red (0), with gamma-corrected brightness so
// structure near the noise floor stays visible.
func magnitudeColor(normalized float64) color.Color {
	m := math.Max(0, math.Min(1, normalized))

	hsv := HSV{
		H: 240 - (m * 240),
		S: 0.9 + (m * 0.1),
		V: math.Pow(m, 0.7),
	}
	return hsv.RGB()
}

// newColorMap pre-computes a lookup table over the normalized range.
func newColorMap(size int) []color.Color {
	colorMap := make([]color.Color, size)
	for i := range colorMap {
		colorMap[i] = magnitudeColor(float64(i) / float64(size-1))
	}
	return colorMap
}
