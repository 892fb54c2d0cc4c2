//go:build windows

package imageprint

import (
	"fmt"
	"image"
	"io"
)

func PrintRasTerm(w io.Writer, i image.Image) error {
	return fmt.Errorf("imageprint: rasterm not supported on windows")
}
