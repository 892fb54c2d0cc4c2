// Package imageprint prints frames on a terminal. It is a debugging aid.
//
// Pixels with zero alpha (palette index 0 of a frame) are printed as blanks
// so that the outline of a sprite stays visible.
package imageprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"

	"github.com/gookit/color"
)

// Mode selects how pixels are written out.
type Mode int

const (
	// TrueColor uses 24 bit background colour escapes.
	TrueColor Mode = iota
	// Color256 uses the closest xterm 256 colour.
	Color256
	// NoColor prints ascii shades only.
	NoColor
	// ITerm emits a single inline image with iTerm2's escape sequence.
	ITerm
	// RasTerm lets rasterm pick kitty, iTerm2 or sixel output.
	RasTerm
)

// Print writes i to w in the passed mode. Unless blanks is set, pixels are
// drawn as ascii shades instead of coloured blanks.
func Print(w io.Writer, i image.Image, mode Mode, blanks bool) error {
	switch mode {
	case Color256:
		return printCells(w, i, Color256, blanks)
	case NoColor:
		return printCells(w, i, NoColor, blanks)
	case ITerm:
		return PrintITerm(w, i, "frame.png")
	case RasTerm:
		return PrintRasTerm(w, i)
	}
	return printCells(w, i, TrueColor, blanks)
}

func shade(col ic.Color, mode Mode, blanks bool) string {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		return "\x1b[0m  "
	}

	cell := "  "
	if !blanks {
		a := ((cR + cG + cB) / 3) >> 8
		switch {
		case a < 32:
			cell = ".."
		case a < 64:
			cell = "--"
		case a < 128:
			cell = "=="
		default:
			cell = "##"
		}
	}

	r, g, b := uint8(cR>>8), uint8(cG>>8), uint8(cB>>8)
	switch mode {
	case NoColor:
		return cell
	case Color256:
		return color.RGB(r, g, b, true).Sprint(cell)
	}
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm%s\x1b[0m", r, g, b, cell)
}

func printCells(w io.Writer, i image.Image, mode Mode, blanks bool) error {
	var b bytes.Buffer
	for y := i.Bounds().Min.Y; y < i.Bounds().Max.Y; y++ {
		for x := i.Bounds().Min.X; x < i.Bounds().Max.X; x++ {
			b.WriteString(shade(i.At(x, y), mode, blanks))
		}
		if mode != NoColor {
			b.WriteString("\x1b[0m")
		}
		b.WriteString("\n")
	}
	_, err := w.Write(b.Bytes())
	return err
}

// Print256Color draws an image using 256color'd ascii art.
func Print256Color(w io.Writer, i image.Image, blanks bool) error {
	return printCells(w, i, Color256, blanks)
}

// Print24bit draws an image using 24bit color escape sequences by changing background.
func Print24bit(w io.Writer, i image.Image, blanks bool) error {
	return printCells(w, i, TrueColor, blanks)
}

// PrintNoColor draws an image without using color escape sequences. Only makes sense with blanks=false.
func PrintNoColor(w io.Writer, i image.Image, blanks bool) error {
	return printCells(w, i, NoColor, blanks)
}

// PrintITerm draws an image using iTerm2's escape sequences.
//
// https://www.iterm2.com/documentation-images.html
func PrintITerm(w io.Writer, i image.Image, fn string) error {
	name := base64.StdEncoding.EncodeToString([]byte(fn))
	b := &bytes.Buffer{}
	bEnc := base64.NewEncoder(base64.StdEncoding, b)
	if err := png.Encode(bEnc, i); err != nil {
		return err
	}
	bEnc.Close()
	_, err := fmt.Fprintf(w, "\n\033]1337;File=name=%s;inline=1;size=%d;width=%dpx;height=%dpx:%s\a\n", name, b.Len(), i.Bounds().Size().X, i.Bounds().Size().Y, b.String())
	return err
}
