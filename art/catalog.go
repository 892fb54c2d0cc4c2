// Package art resolves FIDs to art files and serves decoded frame sheets to a
// cache.
//
// A Catalog is built once from the game's data directories. It holds one name
// index per category plus the per-critter and per-head side tables, and is
// read-only afterwards: every method may be called from any goroutine.
package art

import (
	"bufio"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/config"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/lst"
	"github.com/cambragol/fission-ce/paths"
)

// BlankTileName is the tile shown by the mapper where no tile is set.
const BlankTileName = "grid001.frm"

// defaultBlankTile is used when the tile list has no BlankTileName.
const defaultBlankTile = 1

// Source is what a Catalog reads art from. *paths.Layers is a Source.
type Source interface {
	lst.Source
	Open(name string) (paths.File, error)
	Exists(name string) bool
}

// Look selects one of the player's native appearances.
type Look int

const (
	Tribal Look = iota
	Jumpsuit

	lookCount
)

// Gender selects the male or female variant of an appearance.
type Gender int

const (
	Male Gender = iota
	Female

	genderCount
)

type headInfo struct {
	good, neutral, bad int
}

// Catalog maps FIDs to art files.
type Catalog struct {
	src Source

	// RotationPolicy decides which critter animations BuildFID treats as
	// directional. It may be replaced before the catalog is used.
	RotationPolicy fid.RotationPolicy

	indexes [fid.CategoryCount]*lst.Index

	// language is empty unless localised art should be looked up first.
	language string

	aliases   []int
	shouldRun []bool
	heads     []headInfo

	nativeLook [lookCount][genderCount]int
	vaultGuy   int
	blankTile  int
}

// New builds a catalog: the name index of every category, the critter alias
// and run tables, and the head fidget table. Any failure is fatal and no
// catalog is returned.
func New(src Source, cfg config.Config) (*Catalog, error) {
	c := &Catalog{
		src:            src,
		RotationPolicy: DefaultRotationPolicy,
		blankTile:      defaultBlankTile,
	}
	if !strings.EqualFold(cfg.Language, config.DefaultLanguage) {
		c.language = cfg.Language
	}

	for i := 0; i < fid.CategoryCount; i++ {
		category := fid.Category(i)
		idx, err := lst.Build(category.Name(), src)
		if err != nil {
			return nil, errors.Wrapf(err, "art: building %s index", category)
		}
		c.indexes[i] = idx
	}

	c.findNativeLook(cfg)

	if err := c.readCritterInfo(); err != nil {
		return nil, err
	}

	tiles := c.indexes[fid.Tiles]
	for id := 0; id < tiles.Len(); id++ {
		if name, _ := tiles.Name(id); strings.EqualFold(name, BlankTileName) {
			c.blankTile = id
		}
	}

	if err := c.readHeadInfo(); err != nil {
		return nil, err
	}

	glog.V(2).Infof("art: catalog ready: %d critters, %d heads, vault guy %d, blank tile %d",
		c.indexes[fid.Critters].Len(), c.indexes[fid.Heads].Len(), c.vaultGuy, c.blankTile)
	return c, nil
}

// Close releases the catalog's tables. The catalog must not be used
// afterwards.
func (c *Catalog) Close() {
	for i := range c.indexes {
		c.indexes[i] = nil
	}
	c.aliases = nil
	c.shouldRun = nil
	c.heads = nil
	c.src = nil
}

func (c *Catalog) findNativeLook(cfg config.Config) {
	critters := c.indexes[fid.Critters]
	for id := 0; id < critters.Len(); id++ {
		name, _ := critters.Name(id)
		switch {
		case strings.EqualFold(name, cfg.MaleDefaultModel):
			c.nativeLook[Jumpsuit][Male] = id
		case strings.EqualFold(name, cfg.FemaleDefaultModel):
			c.nativeLook[Jumpsuit][Female] = id
		}

		switch {
		case strings.EqualFold(name, cfg.MaleStartModel):
			c.nativeLook[Tribal][Male] = id
			c.vaultGuy = id
		case strings.EqualFold(name, cfg.FemaleStartModel):
			c.nativeLook[Tribal][Female] = id
		}
	}
}

// sideLines returns up to n lines of the highest priority copy of the name
// list of category. Missing lines are returned as empty strings.
func (c *Catalog) sideLines(category fid.Category, n int) ([]string, error) {
	name := lst.ListPath(category.Name())
	f, err := c.src.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "art: opening %s", name)
	}
	defer f.Close()

	lines := make([]string, n)
	s := bufio.NewScanner(f)
	for i := 0; i < n && s.Scan(); i++ {
		lines[i] = s.Text()
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrapf(err, "art: reading %s", name)
	}
	return lines, nil
}

// readCritterInfo fills the alias and run tables from the critter name list,
// whose lines read "name,alias,run". Without an alias a critter is drawn as
// the vault guy and runs; with an alias but no run flag it walks.
func (c *Catalog) readCritterInfo() error {
	n := c.indexes[fid.Critters].Len()
	lines, err := c.sideLines(fid.Critters, n)
	if err != nil {
		return err
	}

	c.aliases = make([]int, n)
	c.shouldRun = make([]bool, n)
	for i, line := range lines {
		fields := strings.SplitN(line, ",", 3)
		if len(fields) < 2 {
			c.aliases[i] = c.vaultGuy
			c.shouldRun[i] = true
			continue
		}
		c.aliases[i] = atoi(fields[1])
		if len(fields) == 3 {
			c.shouldRun[i] = atoi(fields[2]) != 0
		}
	}
	return nil
}

// readHeadInfo fills the fidget table from the head name list, whose lines
// read "name,good,neutral,bad". Missing counts are zero.
func (c *Catalog) readHeadInfo() error {
	n := c.indexes[fid.Heads].Len()
	lines, err := c.sideLines(fid.Heads, n)
	if err != nil {
		return err
	}

	c.heads = make([]headInfo, n)
	for i, line := range lines {
		fields := strings.Split(line, ",")
		count := func(f int) int {
			if f >= len(fields) {
				return 0
			}
			return atoi(fields[f])
		}
		c.heads[i] = headInfo{good: count(1), neutral: count(2), bad: count(3)}
	}
	return nil
}

// atoi parses the leading decimal integer of s, after any leading blanks, and
// ignores the rest. It returns 0 if there is none.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}

// Index returns the name index of category, or nil for an unknown category.
func (c *Catalog) Index(category fid.Category) *lst.Index {
	if !category.Valid() {
		return nil
	}
	return c.indexes[category]
}

// CategoryName returns the directory name of category under art/.
func CategoryName(category fid.Category) (string, bool) {
	if !category.Valid() {
		return "", false
	}
	return category.Name(), true
}

// FileName returns the name list entry for id in category.
func (c *Catalog) FileName(category fid.Category, id int) (string, bool) {
	idx := c.Index(category)
	if idx == nil {
		return "", false
	}
	return idx.Name(id)
}

// AliasNum returns the critter row whose art stands in for critter id in the
// aliased animations.
func (c *Catalog) AliasNum(id int) (int, bool) {
	if id < 0 || id >= len(c.aliases) {
		return 0, false
	}
	return c.aliases[id], true
}

// CritterShouldRun reports whether the critter named by f runs rather than
// walks.
func (c *Catalog) CritterShouldRun(f fid.FID) bool {
	if f.Category() != fid.Critters || f.ID() >= len(c.shouldRun) {
		return false
	}
	return c.shouldRun[f.ID()]
}

// FidgetCount returns how many fidget clips the head named by f has for the
// reaction in its animation field.
func (c *Catalog) FidgetCount(f fid.FID) int {
	if f.Category() != fid.Heads || f.ID() >= len(c.heads) {
		return 0
	}
	h := c.heads[f.ID()]
	switch f.Anim() {
	case FidgetGood:
		return h.good
	case FidgetNeutral:
		return h.neutral
	case FidgetBad:
		return h.bad
	}
	return 0
}

// NativeLook returns the critter row of one of the player's native
// appearances.
func (c *Catalog) NativeLook(look Look, gender Gender) int {
	if look < 0 || look >= lookCount || gender < 0 || gender >= genderCount {
		return 0
	}
	return c.nativeLook[look][gender]
}

// VaultGuy returns the critter row used for critters without an alias.
func (c *Catalog) VaultGuy() int {
	return c.vaultGuy
}

// BlankTile returns the tile row of BlankTileName.
func (c *Catalog) BlankTile() int {
	return c.blankTile
}

// Language returns the language whose art is looked up first, or an empty
// string if only the default art is used.
func (c *Catalog) Language() string {
	return c.language
}
