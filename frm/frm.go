// Package frm implements a reader and writer for .frm frame sheets.
//
// A frame sheet holds up to six rotations of an animation. Each rotation is a
// run of frame records; each record is a small header (width, height, pixel
// count, draw offset) followed by that many palette-indexed pixels. All
// integers on disk are big-endian.
//
// Rotations whose data offset equals the previous rotation's share that
// rotation's frames instead of storing their own.
//
// In memory, every frame record is aligned to four bytes. Decoded sheets keep
// their frames in a single byte arena laid out that way, so the size of the
// arena can be bounded from the header alone (see WorstCaseSize) before any
// frame is read.
package frm

// This file contains code directly related to decoding and encoding the frm
// file format.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// RotationCount is the number of rotations a sheet describes.
const RotationCount = 6

// DefaultFramesPerSecond is the rate used for sheets that declare zero.
const DefaultFramesPerSecond = 10

const (
	// DiskHeaderSize is the size of Header as stored on disk.
	DiskHeaderSize = 62

	// HeaderSize is the footprint of a decoded sheet's header, including the
	// per-rotation padding table. Sizing of decoded sheets counts it once.
	HeaderSize = 88

	// FrameHeaderSize is the size of one frame record's header.
	FrameHeaderSize = 12
)

var (
	// ErrShortArena is returned when a decode buffer cannot hold the sheet.
	ErrShortArena = errors.New("frm: arena too small for frame data")

	// ErrCorrupt is returned for structurally invalid sheets.
	ErrCorrupt = errors.New("frm: corrupt frame sheet")
)

// Header is the fixed part of a frame sheet, in on-disk field order.
type Header struct {
	Version         uint32
	FramesPerSecond int16
	ActionFrame     int16
	FrameCount      int16
	XOffsets        [RotationCount]int16
	YOffsets        [RotationCount]int16
	DataOffsets     [RotationCount]int32
	DataSize        int32
}

// shared reports whether rotation r reuses the frames of rotation r-1.
func (h *Header) shared(r int) bool {
	return r > 0 && h.DataOffsets[r] == h.DataOffsets[r-1]
}

// DistinctRotations returns how many rotations carry their own frame data.
func (h *Header) DistinctRotations() int {
	n := 0
	for r := 0; r < RotationCount; r++ {
		if !h.shared(r) {
			n++
		}
	}
	return n
}

// PaddingForSize returns how many bytes follow a block of size bytes to bring
// the next block to a four byte boundary.
func PaddingForSize(size int) int {
	return (4 - size%4) % 4
}

// WorstCaseSize returns an upper bound on the memory a decoded sheet with
// header h occupies: the header, the on-disk frame data and four bytes of
// alignment slack for each frame of each rotation carrying its own frames.
func WorstCaseSize(h Header) int {
	size := HeaderSize + int(h.DataSize)
	for r := 0; r < RotationCount; r++ {
		if !h.shared(r) {
			size += 4 * int(h.FrameCount)
		}
	}
	return size
}

// DecodeHeader reads the header of a frame sheet from r, which must be
// positioned at the start of the sheet.
//
// Some shipped sheets carry a zero DataSize; for those, DataSize is set to
// the number of bytes remaining in r after the header.
func DecodeHeader(r io.ReadSeeker) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return Header{}, fmt.Errorf("could not read frm header: %s", err)
	}
	if h.FrameCount < 0 {
		return Header{}, errors.Wrapf(ErrCorrupt, "negative frame count %d", h.FrameCount)
	}
	if h.DataSize < 0 {
		return Header{}, errors.Wrapf(ErrCorrupt, "negative data size %d", h.DataSize)
	}

	if h.DataSize == 0 {
		remaining, err := remainingBytes(r)
		if err != nil {
			return Header{}, errors.Wrap(err, "could not measure frm data")
		}
		h.DataSize = int32(remaining)
	}
	return h, nil
}

func remainingBytes(r io.Seeker) (int64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end - cur, nil
}

// DecodeSheet reads a complete frame sheet from r.
func DecodeSheet(r io.ReadSeeker) (*Sheet, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "frm: locating sheet start")
	}
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "frm: rewinding to sheet start")
	}
	return DecodeSheetInto(r, make([]byte, WorstCaseSize(h)-HeaderSize))
}

// DecodeSheetInto reads a complete frame sheet from r, placing frame records
// in arena. The arena needs at most WorstCaseSize(header)-HeaderSize bytes.
//
// The returned sheet keeps a reference to arena. On any failure no sheet is
// returned.
func DecodeSheetInto(r io.ReadSeeker, arena []byte) (*Sheet, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}

	s := &Sheet{Header: h}

	currentPadding := int32(PaddingForSize(HeaderSize))
	previousPadding := int32(0)
	extent := 0
	for rot := 0; rot < RotationCount; rot++ {
		s.Padding[rot] = currentPadding
		if h.shared(rot) {
			continue
		}

		s.Padding[rot] += previousPadding
		currentPadding += previousPadding

		if h.DataOffsets[rot] < 0 {
			return nil, errors.Wrapf(ErrCorrupt, "rotation %d: negative data offset %d", rot, h.DataOffsets[rot])
		}
		start := int(h.DataOffsets[rot]) + int(s.Padding[rot])
		end, padding, err := readFrames(r, arena, start, int(h.FrameCount))
		if err != nil {
			return nil, errors.Wrapf(err, "rotation %d", rot)
		}
		previousPadding = int32(padding)
		if end > extent {
			extent = end
		}
	}

	s.arena = arena[:extent]
	return s, nil
}

// readFrames reads count frame records from r into arena at off, aligning
// each to four bytes. It returns the arena offset past the last record and
// the padding inserted.
func readFrames(r io.Reader, arena []byte, off, count int) (int, int, error) {
	padding := 0
	for i := 0; i < count; i++ {
		if off+FrameHeaderSize > len(arena) {
			return 0, 0, errors.Wrapf(ErrShortArena, "frame %d header at %d, arena %d", i, off, len(arena))
		}
		rec := arena[off : off+FrameHeaderSize]
		if _, err := io.ReadFull(r, rec); err != nil {
			return 0, 0, fmt.Errorf("could not read frm frame %d header: %s", i, err)
		}

		size := int(int32(binary.BigEndian.Uint32(rec[4:8])))
		if size < 0 {
			return 0, 0, errors.Wrapf(ErrCorrupt, "frame %d: negative size %d", i, size)
		}
		w, h := int(binary.BigEndian.Uint16(rec[0:2])), int(binary.BigEndian.Uint16(rec[2:4]))
		if size < w*h {
			return 0, 0, errors.Wrapf(ErrCorrupt, "frame %d: %d bytes for %dx%d pixels", i, size, w, h)
		}
		pad := PaddingForSize(size)
		data := off + FrameHeaderSize
		if data+size+pad > len(arena) {
			return 0, 0, errors.Wrapf(ErrShortArena, "frame %d: %d bytes at %d, arena %d", i, size, data, len(arena))
		}
		if _, err := io.ReadFull(r, arena[data:data+size]); err != nil {
			return 0, 0, fmt.Errorf("could not read frm frame %d pixels: %s", i, err)
		}
		for j := data + size; j < data+size+pad; j++ {
			arena[j] = 0
		}

		off = data + size + pad
		padding += pad
	}
	return off, padding, nil
}

// EncodeHeader writes h in on-disk form.
func EncodeHeader(w io.Writer, h Header) error {
	if err := binary.Write(w, binary.BigEndian, &h); err != nil {
		return fmt.Errorf("could not write frm header: %s", err)
	}
	return nil
}

// EncodeSheet writes s in on-disk form: the header followed by the frames of
// every rotation that does not share its predecessor's frames.
func EncodeSheet(w io.Writer, s *Sheet) error {
	if s == nil {
		return errors.New("frm: nil sheet")
	}
	if err := EncodeHeader(w, s.Header); err != nil {
		return err
	}
	for rot := 0; rot < RotationCount; rot++ {
		if s.shared(rot) {
			continue
		}
		off := s.rotationStart(rot)
		for i := 0; i < int(s.FrameCount); i++ {
			f, next, err := s.frameAt(off)
			if err != nil {
				return errors.Wrapf(err, "rotation %d frame %d", rot, i)
			}
			if _, err := w.Write(s.arena[off : off+FrameHeaderSize]); err != nil {
				return fmt.Errorf("could not write frm frame header: %s", err)
			}
			if _, err := w.Write(f.Pixels); err != nil {
				return fmt.Errorf("could not write frm frame pixels: %s", err)
			}
			off = next
		}
	}
	return nil
}

// RotationFrames describes one rotation handed to NewSheet. A rotation other
// than the first with no frames shares the frames of the rotation before it.
type RotationFrames struct {
	XOffset, YOffset int
	Frames           []Frame
}

// NewSheet assembles a sheet from frames, computing data offsets and sizes.
// Every rotation with its own frames must have the same number of them.
func NewSheet(fps, actionFrame int, rotations [RotationCount]RotationFrames) (*Sheet, error) {
	if len(rotations[0].Frames) == 0 {
		return nil, errors.New("frm: first rotation has no frames")
	}
	count := len(rotations[0].Frames)

	h := Header{
		Version:         4,
		FramesPerSecond: int16(fps),
		ActionFrame:     int16(actionFrame),
		FrameCount:      int16(count),
	}

	var body bytes.Buffer
	for rot, rf := range rotations {
		h.XOffsets[rot] = int16(rf.XOffset)
		h.YOffsets[rot] = int16(rf.YOffset)
		if rot > 0 && len(rf.Frames) == 0 {
			h.DataOffsets[rot] = h.DataOffsets[rot-1]
			continue
		}
		if len(rf.Frames) != count {
			return nil, errors.Errorf("frm: rotation %d has %d frames, want %d", rot, len(rf.Frames), count)
		}
		h.DataOffsets[rot] = int32(body.Len())
		for _, f := range rf.Frames {
			if err := f.encode(&body); err != nil {
				return nil, err
			}
		}
	}
	h.DataSize = int32(body.Len())

	var raw bytes.Buffer
	if err := EncodeHeader(&raw, h); err != nil {
		return nil, err
	}
	raw.Write(body.Bytes())
	return DecodeSheet(bytes.NewReader(raw.Bytes()))
}
