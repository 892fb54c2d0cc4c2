package main

import (
	"image"
	"os"

	"github.com/golang/glog"
	"github.com/nfnt/resize"

	"github.com/cambragol/fission-ce/imageprint"
)

func out(img image.Image) {
	if *downsize {
		termSize, err := GetTermSize()
		if err == nil {
			if (termSize.WSXPixel != 0 && termSize.WSYPixel != 0) && (*rasterm || *iterm) {
				// Prefer native size when the terminal draws real images.
				img = resize.Thumbnail(termSize.WSXPixel/2, termSize.WSYPixel/2, img, resize.NearestNeighbor)
			} else {
				// Every pixel takes two columns.
				img = resize.Thumbnail(termSize.WSCol/2, termSize.WSRow, img, resize.NearestNeighbor)
			}
		}
	}

	mode := imageprint.TrueColor
	switch {
	case *rasterm:
		mode = imageprint.RasTerm
	case !*col:
		mode = imageprint.NoColor
	case *iterm:
		mode = imageprint.ITerm
	case *col256:
		mode = imageprint.Color256
	}
	if err := imageprint.Print(os.Stdout, img, mode, *blanks); err != nil {
		glog.Errorf("printing frame: %v", err)
	}
}
