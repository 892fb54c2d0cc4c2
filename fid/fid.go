// Package fid packs and unpacks frame identifiers (FIDs).
//
// A FID names one renderable asset variant: the art category, the row in that
// category's name list, an animation code, a weapon (or generic sub) code and
// the facing rotation. All five live in a single 32-bit value:
//
//	bit  31     unused
//	bits 28..30 rotation
//	bits 24..27 category
//	bits 16..23 animation code
//	bits 12..15 weapon or sub code
//	bits  0..11 local id
package fid

import "fmt"

// FID is a packed frame identifier.
type FID uint32

const (
	idMask       = 0x00000FFF
	weaponMask   = 0x0000F000
	animMask     = 0x00FF0000
	categoryMask = 0x0F000000
	rotationMask = 0x70000000

	weaponShift   = 12
	animShift     = 16
	categoryShift = 24
	rotationShift = 28
)

// MaxID is the largest local id representable in a FID.
const MaxID = idMask

// Category is a top-level art class. Its value doubles as the index into the
// per-category name tables.
type Category uint8

const (
	Items Category = iota
	Critters
	Scenery
	Walls
	Tiles
	Misc
	Interface
	Inventory
	Heads
	Background
	Skilldex

	CategoryCount int = iota
)

var categoryNames = [CategoryCount]string{
	"items",
	"critters",
	"scenery",
	"walls",
	"tiles",
	"misc",
	"intrface",
	"inven",
	"heads",
	"backgrnd",
	"skilldex",
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	return int(c) < CategoryCount
}

// Name returns the directory name of the category under art/, or an empty
// string for an unknown category.
func (c Category) Name() string {
	if !c.Valid() {
		return ""
	}
	return categoryNames[c]
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// Rotation is one of the six facings a sprite may be drawn from.
type Rotation uint8

const (
	NE Rotation = iota
	E
	SE
	SW
	W
	NW

	RotationCount int = iota
)

// Fields is the unpacked form of a FID.
type Fields struct {
	Category Category
	ID       int
	Anim     int
	Weapon   int
	Rotation Rotation
}

// Pack builds a FID from its parts. Values are masked to their field widths;
// range checking is the caller's business.
func Pack(category Category, id, anim, weapon int, rotation Rotation) FID {
	return FID((uint32(rotation)<<rotationShift)&rotationMask |
		(uint32(category)<<categoryShift)&categoryMask |
		(uint32(anim)<<animShift)&animMask |
		(uint32(weapon)<<weaponShift)&weaponMask |
		uint32(id)&idMask)
}

// Unpack splits f into its parts.
func Unpack(f FID) Fields {
	return Fields{
		Category: f.Category(),
		ID:       f.ID(),
		Anim:     f.Anim(),
		Weapon:   f.Weapon(),
		Rotation: f.Rotation(),
	}
}

// Pack is the inverse of Unpack.
func (fs Fields) Pack() FID {
	return Pack(fs.Category, fs.ID, fs.Anim, fs.Weapon, fs.Rotation)
}

func (f FID) Category() Category { return Category((uint32(f) & categoryMask) >> categoryShift) }
func (f FID) ID() int            { return int(uint32(f) & idMask) }
func (f FID) Anim() int          { return int((uint32(f) & animMask) >> animShift) }
func (f FID) Weapon() int        { return int((uint32(f) & weaponMask) >> weaponShift) }
func (f FID) Rotation() Rotation { return Rotation((uint32(f) & rotationMask) >> rotationShift) }

// WithRotation returns f with its rotation field replaced.
func (f FID) WithRotation(r Rotation) FID {
	return FID(uint32(f)&^rotationMask | (uint32(r)<<rotationShift)&rotationMask)
}

func (f FID) String() string {
	return fmt.Sprintf("fid:%s/%d/a%d/w%d/r%d", f.Category(), f.ID(), f.Anim(), f.Weapon(), f.Rotation())
}
