package frm

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Frame is one decoded frame record.
type Frame struct {
	Width, Height int
	// X and Y shift the frame relative to the previous one when animating.
	X, Y int
	// Pixels holds Width*Height palette indices, row by row. For frames
	// obtained from a Sheet it aliases the sheet's arena.
	Pixels []byte
}

func (f *Frame) encode(w io.Writer) error {
	var rec [FrameHeaderSize]byte
	binary.BigEndian.PutUint16(rec[0:2], uint16(f.Width))
	binary.BigEndian.PutUint16(rec[2:4], uint16(f.Height))
	binary.BigEndian.PutUint32(rec[4:8], uint32(len(f.Pixels)))
	binary.BigEndian.PutUint16(rec[8:10], uint16(int16(f.X)))
	binary.BigEndian.PutUint16(rec[10:12], uint16(int16(f.Y)))
	if _, err := w.Write(rec[:]); err != nil {
		return errors.Wrap(err, "frm: writing frame header")
	}
	if _, err := w.Write(f.Pixels); err != nil {
		return errors.Wrap(err, "frm: writing frame pixels")
	}
	return nil
}

// Sheet is a decoded frame sheet.
//
// Frame records live in one arena. Rotation r starts at
// DataOffsets[r]+Padding[r]; each record is followed by its own alignment
// padding. A Sheet is read-only once decoded.
type Sheet struct {
	Header

	// Padding is the alignment padding inserted before each rotation's
	// frames, accumulated over the preceding rotations.
	Padding [RotationCount]int32

	arena []byte
}

// DecodedSize returns the memory the sheet actually occupies, counted the
// same way as WorstCaseSize.
func (s *Sheet) DecodedSize() int {
	if s == nil {
		return 0
	}
	return HeaderSize + len(s.arena)
}

// Release drops the sheet's frame data. The sheet must not be used for
// frame lookups afterwards.
func (s *Sheet) Release() {
	if s != nil {
		s.arena = nil
	}
}

func (s *Sheet) rotationStart(rot int) int {
	return int(s.DataOffsets[rot]) + int(s.Padding[rot])
}

// frameAt materialises the record at arena offset off and returns the offset
// of the record after it.
func (s *Sheet) frameAt(off int) (*Frame, int, error) {
	if off < 0 || off+FrameHeaderSize > len(s.arena) {
		return nil, 0, errors.Wrapf(ErrCorrupt, "frame header at %d outside arena of %d", off, len(s.arena))
	}
	rec := s.arena[off : off+FrameHeaderSize]
	size := int(int32(binary.BigEndian.Uint32(rec[4:8])))
	data := off + FrameHeaderSize
	if size < 0 || data+size > len(s.arena) {
		return nil, 0, errors.Wrapf(ErrCorrupt, "frame pixels at %d+%d outside arena of %d", data, size, len(s.arena))
	}
	f := &Frame{
		Width:  int(binary.BigEndian.Uint16(rec[0:2])),
		Height: int(binary.BigEndian.Uint16(rec[2:4])),
		X:      int(int16(binary.BigEndian.Uint16(rec[8:10]))),
		Y:      int(int16(binary.BigEndian.Uint16(rec[10:12]))),
		Pixels: s.arena[data : data+size : data+size],
	}
	return f, data + size + PaddingForSize(size), nil
}

// FrameOffset returns the arena offset of frame in rotation, found by walking
// the rotation's records from its start.
func (s *Sheet) FrameOffset(frame, rotation int) (int, bool) {
	if s == nil || rotation < 0 || rotation >= RotationCount {
		return -1, false
	}
	if frame < 0 || frame >= int(s.FrameCount) {
		return -1, false
	}
	off := s.rotationStart(rotation)
	for i := 0; i < frame; i++ {
		_, next, err := s.frameAt(off)
		if err != nil {
			return -1, false
		}
		off = next
	}
	return off, true
}

// Frame returns frame number frame of rotation, or nil if either is out of
// range.
func (s *Sheet) Frame(frame, rotation int) *Frame {
	off, ok := s.FrameOffset(frame, rotation)
	if !ok {
		return nil
	}
	f, _, err := s.frameAt(off)
	if err != nil {
		return nil
	}
	return f
}

// FrameData returns the pixels of a frame, or nil.
func (s *Sheet) FrameData(frame, rotation int) []byte {
	f := s.Frame(frame, rotation)
	if f == nil {
		return nil
	}
	return f.Pixels
}

// Width returns the width of a frame, or -1.
func (s *Sheet) Width(frame, rotation int) int {
	f := s.Frame(frame, rotation)
	if f == nil {
		return -1
	}
	return f.Width
}

// Height returns the height of a frame, or -1.
func (s *Sheet) Height(frame, rotation int) int {
	f := s.Frame(frame, rotation)
	if f == nil {
		return -1
	}
	return f.Height
}

// Size returns the width and height of a frame. ok is false, and both
// dimensions zero, if the frame does not exist.
func (s *Sheet) Size(frame, rotation int) (width, height int, ok bool) {
	f := s.Frame(frame, rotation)
	if f == nil {
		return 0, 0, false
	}
	return f.Width, f.Height, true
}

// FrameOffsets returns the per-frame draw shift of a frame.
func (s *Sheet) FrameOffsets(frame, rotation int) (x, y int, ok bool) {
	f := s.Frame(frame, rotation)
	if f == nil {
		return 0, 0, false
	}
	return f.X, f.Y, true
}

// RotationOffsets returns the anchor offset of a rotation.
func (s *Sheet) RotationOffsets(rotation int) (x, y int, ok bool) {
	if s == nil || rotation < 0 || rotation >= RotationCount {
		return 0, 0, false
	}
	return int(s.XOffsets[rotation]), int(s.YOffsets[rotation]), true
}

// FramesPerSecond returns the sheet's playback rate, substituting
// DefaultFramesPerSecond for a declared zero or a nil sheet.
func (s *Sheet) FramesPerSecond() int {
	if s == nil || s.Header.FramesPerSecond == 0 {
		return DefaultFramesPerSecond
	}
	return int(s.Header.FramesPerSecond)
}

// ActionFrameIndex returns the index of the frame on which the animation's action
// happens, or -1 for a nil sheet.
func (s *Sheet) ActionFrameIndex() int {
	if s == nil {
		return -1
	}
	return int(s.ActionFrame)
}

// Frames returns the number of frames per rotation, or -1 for a nil sheet.
func (s *Sheet) Frames() int {
	if s == nil {
		return -1
	}
	return int(s.FrameCount)
}
