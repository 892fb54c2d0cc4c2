package frm

// This file contains frm package's functions related to implementing
// image.Image and related interfaces. Anything related to the sheet as a
// whole lives in frm.go and sheet.go.

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/pal"
)

func init() {
	// Every shipped sheet carries version 4.
	image.RegisterFormat("frm", "\x00\x00\x00\x04", Decode, DecodeConfig)
}

// Palette is used by Decode to colour frames. It defaults to a grayscale ramp
// until a game palette is loaded into it.
var Palette = pal.Grayscale()

// Image converts f into a paletted image using p. Index 0 is always drawn
// transparent.
func Image(f *Frame, p color.Palette) *image.Paletted {
	p = pal.WithTransparent(p)
	img := image.NewPaletted(image.Rect(0, 0, f.Width, f.Height), p)
	n := copy(img.Pix, f.Pixels)
	for i := n; i < len(img.Pix); i++ {
		img.Pix[i] = 0
	}
	return img
}

func firstFrame(r io.Reader) (*Frame, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		// image.Decode hands over a buffered reader that cannot seek.
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("could not read frm: %s", err)
		}
		rs = bytes.NewReader(b)
	}
	s, err := DecodeSheet(rs)
	if err != nil {
		return nil, err
	}
	f := s.Frame(0, 0)
	if f == nil {
		return nil, errors.Wrap(ErrCorrupt, "sheet has no frames")
	}
	return f, nil
}

// Decode returns the first frame of the first rotation of a sheet.
func Decode(r io.Reader) (image.Image, error) {
	f, err := firstFrame(r)
	if err != nil {
		return nil, err
	}
	return Image(f, Palette), nil
}

// DecodeConfig returns the dimensions of the first frame of the first
// rotation of a sheet.
func DecodeConfig(r io.Reader) (image.Config, error) {
	f, err := firstFrame(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{Width: f.Width, Height: f.Height, ColorModel: pal.WithTransparent(Palette)}, nil
}
