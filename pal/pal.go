// Package pal decodes the colour palettes used to draw frame sheets.
//
// A palette file holds 256 RGB triplets, one byte per channel, with each
// channel in the range 0..63. Anything after the triplets (colour mixing
// tables) is ignored.
package pal

import (
	"fmt"
	"image/color"
	"io"
)

// Size is the number of entries in a palette.
const Size = 256

// Decode reads a palette.
//
// Channels above 63 mark unused entries and decode as black.
func Decode(r io.Reader) (color.Palette, error) {
	var raw [Size * 3]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("could not read palette: %s", err)
	}

	p := make(color.Palette, Size)
	for i := range p {
		c := raw[i*3 : i*3+3]
		if c[0] > 63 || c[1] > 63 || c[2] > 63 {
			p[i] = color.RGBA{A: 0xff}
			continue
		}
		p[i] = color.RGBA{R: scale(c[0]), G: scale(c[1]), B: scale(c[2]), A: 0xff}
	}
	return p, nil
}

func scale(v byte) uint8 {
	return v<<2 | v>>4
}

// Grayscale returns a 256-entry gray ramp, for drawing frames when no palette
// file is at hand.
func Grayscale() color.Palette {
	p := make(color.Palette, Size)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}

// WithTransparent returns a copy of p whose entry 0 is fully transparent.
// Frames use index 0 for pixels that are not drawn.
func WithTransparent(p color.Palette) color.Palette {
	out := make(color.Palette, len(p))
	copy(out, p)
	if len(out) > 0 {
		out[0] = color.RGBA{}
	}
	return out
}
