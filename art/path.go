package art

import (
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/fid"
)

// MaxPathLength bounds the length of a built art path.
const MaxPathLength = 260

var (
	// ErrInvalidFID is returned for a FID naming no art: an unknown
	// category, an id past the end of the name list or an animation that
	// has no file name.
	ErrInvalidFID = errors.New("art: invalid fid")

	// ErrPathTooLong is returned when a built path reaches MaxPathLength.
	ErrPathTooLong = errors.New("art: path too long")
)

// FilePath returns the path of the file holding the art named by f, relative
// to a search root.
//
// Critter names get two letters for the weapon and animation, and the
// extension carries the rotation (".frm" for NE, ".fr1" to ".fr5" for the
// others). Head names get the reaction and clip letters. Other names are
// used as listed, with ".frm" appended when missing.
func (c *Catalog) FilePath(f fid.FID) (string, error) {
	rotation := f.Rotation()
	if a, ok := c.AliasFID(f); ok {
		f = a
	}

	category := f.Category()
	name, ok := c.FileName(category, f.ID())
	if !ok {
		return "", errors.Wrapf(ErrInvalidFID, "%s", f)
	}

	var file string
	switch category {
	case fid.Critters:
		weapon, anim, ok := critterCode(f.Anim(), f.Weapon())
		if !ok {
			return "", errors.Wrapf(ErrInvalidFID, "%s: no critter animation code", f)
		}
		ext := ".frm"
		if rotation != fid.NE {
			ext = ".fr" + strconv.Itoa(int(rotation))
		}
		file = name + string([]byte{weapon, anim}) + ext
	case fid.Heads:
		anim := f.Anim()
		if anim >= len(headClip) {
			return "", errors.Wrapf(ErrInvalidFID, "%s: no head clip", f)
		}
		if headClip[anim] == 'f' {
			file = name + string([]byte{headMood[anim], 'f'}) + strconv.Itoa(f.Weapon()) + ".frm"
		} else {
			file = name + string([]byte{headMood[anim], headClip[anim]}) + ".frm"
		}
	default:
		file = name
		if !hasSuffixFold(file, ".frm") {
			file += ".frm"
		}
	}

	p := "art/" + category.Name() + "/" + file
	if len(p) >= MaxPathLength {
		glog.Warningf("art: path too long: %s", p)
		return "", errors.Wrapf(ErrPathTooLong, "%d bytes", len(p))
	}
	return p, nil
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// LocalizedPath returns where the localised copy of the art at p lives:
// everything after the first path element is moved under art/<language>/.
// ok is false if no language is configured.
func (c *Catalog) LocalizedPath(p string) (string, bool) {
	if c.language == "" {
		return "", false
	}
	rest := p
	if i := strings.IndexAny(p, `/\`); i >= 0 {
		rest = p[i+1:]
	}
	return "art/" + c.language + "/" + rest, true
}

// candidates returns the paths to try for f, the localised one first.
func (c *Catalog) candidates(f fid.FID) ([]string, error) {
	p, err := c.FilePath(f)
	if err != nil {
		return nil, err
	}
	if lp, ok := c.LocalizedPath(p); ok {
		if len(lp) < MaxPathLength {
			return []string{lp, p}, nil
		}
		glog.Warningf("art: path too long: %s", lp)
	}
	return []string{p}, nil
}

// Exists reports whether the art file for f is present.
func (c *Catalog) Exists(f fid.FID) bool {
	p, err := c.FilePath(f)
	if err != nil {
		return false
	}
	return c.src.Exists(p)
}

// AliasFID returns the FID actually drawn for critter animations that borrow
// the art of another critter row. ok is false if f is not aliased.
func (c *Catalog) AliasFID(f fid.FID) (fid.FID, bool) {
	if f.Category() != fid.Critters || !aliased[f.Anim()] {
		return f, false
	}
	alias, ok := c.AliasNum(f.ID())
	if !ok {
		return f, false
	}
	return fid.Pack(fid.Critters, alias, f.Anim(), f.Weapon(), f.Rotation()), true
}

// BuildFID packs a FID, settling on a rotation for which art exists. See
// fid.ResolveRotation.
func (c *Catalog) BuildFID(category fid.Category, id, anim, weapon int, rotation fid.Rotation) fid.FID {
	r := fid.ResolveRotation(c.RotationPolicy, category, id, anim, weapon, rotation, c.Exists)
	return fid.Pack(category, id, anim, weapon, r)
}

// FIDWithVariant returns the FID of row base of category, or of its variant
// carrying suffix if useVariant is set and such a variant was found.
func (c *Catalog) FIDWithVariant(category fid.Category, base int, suffix string, useVariant bool) fid.FID {
	if useVariant {
		if idx := c.Index(category); idx != nil {
			if id, err := idx.FindVariant(base, suffix); err == nil {
				return fid.Pack(category, id, 0, 0, fid.NE)
			}
		}
	}
	return fid.Pack(category, base, 0, 0, fid.NE)
}
