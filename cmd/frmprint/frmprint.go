// Command frmprint prints one frame of game art on the terminal.
//
// The frame is named either by FID (packed, or by its parts) and looked up in
// the data directories, or by the path of a .frm file.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/art"
	"github.com/cambragol/fission-ce/config"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/frm"
	"github.com/cambragol/fission-ce/pal"
	"github.com/cambragol/fission-ce/paths"
)

var (
	fidFlag  = flag.String("fid", "", "packed FID to print, e.g. 0x01000000; overrides -category and friends")
	category = flag.Int("category", int(fid.Items), "art category of the FID to print")
	id       = flag.Int("id", 0, "row in the category's name list")
	anim     = flag.Int("anim", 0, "animation code")
	weapon   = flag.Int("weapon", 0, "weapon or sub code")
	frmFile  = flag.String("file", "", "print from this .frm file instead of looking up a FID")

	frame    = flag.Int("frame", 0, "frame to print")
	rotation = flag.Int("rotation", 0, "rotation to print")
	info     = flag.Bool("info", false, "print the sheet's header before the frame")

	paletteName = flag.String("palette", "color.pal", "palette file, looked up in the data directories; grayscale if missing")
	gameCfg     = flag.String("game_cfg", "fallout2.cfg", "game configuration file")
	extCfg      = flag.String("ext_cfg", "ddraw.ini", "engine extension configuration file")

	col      = flag.Bool("col", true, "whether to use colour at all")
	col256   = flag.Bool("col256", false, "whether to use 256 col instead of 24 bit")
	iterm    = flag.Bool("iterm", false, "whether to print with iterm escape code instead of 24 bit")
	rasterm  = flag.Bool("rasterm", false, "whether to print with rasterm (kitty, iterm, sixel)")
	blanks   = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	downsize = flag.Bool("downsize", true, "whether to shrink frames that do not fit the terminal")

	layers = paths.SetupLayerFlag("data_dir")
)

func loadPalette(l *paths.Layers) color.Palette {
	f, err := l.Open(*paletteName)
	if err != nil {
		glog.V(1).Infof("no palette %q, using grayscale: %v", *paletteName, err)
		return pal.Grayscale()
	}
	defer f.Close()
	p, err := pal.Decode(f)
	if err != nil {
		glog.Warningf("bad palette %q, using grayscale: %v", *paletteName, err)
		return pal.Grayscale()
	}
	return p
}

func requestedFID() (fid.FID, error) {
	if *fidFlag == "" {
		return fid.Pack(fid.Category(*category), *id, *anim, *weapon, fid.Rotation(*rotation)), nil
	}
	v, err := strconv.ParseUint(*fidFlag, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing -fid %q", *fidFlag)
	}
	return fid.FID(v), nil
}

func printInfo(s *frm.Sheet) {
	fmt.Printf("frames: %d, fps: %d, action frame: %d, distinct rotations: %d\n",
		s.Frames(), s.FramesPerSecond(), s.ActionFrameIndex(), s.DistinctRotations())
	for r := 0; r < frm.RotationCount; r++ {
		x, y, _ := s.RotationOffsets(r)
		w, h, _ := s.Size(0, r)
		fmt.Printf("rotation %d: offset %d,%d, first frame %dx%d\n", r, x, y, w, h)
	}
}

func fromFile(p color.Palette) (image.Image, error) {
	f, err := os.Open(*frmFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := frm.DecodeSheet(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", *frmFile)
	}
	if *info {
		printInfo(s)
	}
	fr := s.Frame(*frame, *rotation)
	if fr == nil {
		return nil, errors.Errorf("%s has no frame %d in rotation %d", *frmFile, *frame, *rotation)
	}
	return frm.Image(fr, p), nil
}

func fromCatalog(l *paths.Layers, p color.Palette) (image.Image, error) {
	cfg, err := config.Load(*gameCfg, *extCfg)
	if err != nil {
		return nil, err
	}
	c, err := art.New(l, cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	f, err := requestedFID()
	if err != nil {
		return nil, err
	}
	if name, err := c.FilePath(f); err == nil {
		glog.Infof("%s is %s (found at %q)", f, name, l.Find(name))
	}

	ch := art.NewCache(c, cfg)
	if *info {
		s, h, err := art.Lock(ch, f)
		if err != nil {
			return nil, err
		}
		printInfo(s)
		art.Unlock(ch, h)
	}
	return art.Image(ch, f, *frame, *rotation, p)
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	l := layers()
	p := loadPalette(l)

	var img image.Image
	var err error
	if *frmFile != "" {
		img, err = fromFile(p)
	} else {
		img, err = fromCatalog(l, p)
	}
	if err != nil {
		glog.Exitf("frmprint: %v", err)
	}

	out(img)
}
