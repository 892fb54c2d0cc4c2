package art

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/cache"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/frm"
)

// ErrNoFrame is returned when a locked sheet has no such frame.
var ErrNoFrame = errors.New("art: no such frame")

// Lock returns the decoded sheet for f, pinned in ch until the handle is
// passed to Unlock.
func Lock(ch *cache.Cache, f fid.FID) (*frm.Sheet, *cache.Handle, error) {
	v, h, err := ch.Lock(uint32(f))
	if err != nil {
		return nil, nil, err
	}
	return v.(*frm.Sheet), h, nil
}

// LockFrameData returns the pixels of one frame of the sheet for f. The sheet
// stays locked until the handle is passed to Unlock, even when the frame
// does not exist.
func LockFrameData(ch *cache.Cache, f fid.FID, frame, rotation int) ([]byte, *cache.Handle, error) {
	s, h, err := Lock(ch, f)
	if err != nil {
		return nil, nil, err
	}
	data := s.FrameData(frame, rotation)
	if data == nil {
		return nil, h, errors.Wrapf(ErrNoFrame, "%s frame %d rotation %d", f, frame, rotation)
	}
	return data, h, nil
}

// LockFrameDataReturningSize returns the pixels and size of the first frame
// of the sheet for f. The sheet stays locked until the handle is passed to
// Unlock.
func LockFrameDataReturningSize(ch *cache.Cache, f fid.FID) (data []byte, width, height int, h *cache.Handle, err error) {
	s, h, err := Lock(ch, f)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	width, height, ok := s.Size(0, 0)
	if !ok {
		return nil, 0, 0, h, errors.Wrapf(ErrNoFrame, "%s has no first frame", f)
	}
	return s.FrameData(0, 0), width, height, h, nil
}

// Unlock releases a handle returned by one of the Lock functions.
func Unlock(ch *cache.Cache, h *cache.Handle) error {
	return ch.Unlock(h)
}

// Image returns a copy of one frame of the art for f as a paletted image.
// The sheet is locked only for the duration of the call.
func Image(ch *cache.Cache, f fid.FID, frame, rotation int, p color.Palette) (*image.Paletted, error) {
	s, h, err := Lock(ch, f)
	if err != nil {
		return nil, err
	}
	defer Unlock(ch, h)

	fr := s.Frame(frame, rotation)
	if fr == nil {
		return nil, errors.Wrapf(ErrNoFrame, "%s frame %d rotation %d", f, frame, rotation)
	}
	return frm.Image(fr, p), nil
}
