package art

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/cache"
	"github.com/cambragol/fission-ce/config"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/frm"
)

// A Catalog is the loader behind the art cache. Keys are FIDs.
var _ cache.Loader = (*Catalog)(nil)

// NewCache returns a cache of decoded sheets sized by cfg.
func NewCache(c *Catalog, cfg config.Config) *cache.Cache {
	return cache.New(c, cfg.ArtCacheBytes())
}

// CacheSize returns the memory the sheet for key needs once decoded. Only the
// headers are read. Every copy CacheRead may fall back to is sized, and the
// largest worst case wins; copies whose header does not decode are skipped.
func (c *Catalog) CacheSize(key uint32) (int, error) {
	tries, err := c.candidates(fid.FID(key))
	if err != nil {
		return 0, err
	}

	size := 0
	var lastErr error
	for _, p := range tries {
		f, err := c.src.Open(p)
		if err != nil {
			lastErr = errors.Wrapf(err, "art: opening %s", p)
			continue
		}
		h, err := frm.DecodeHeader(f)
		f.Close()
		if err != nil {
			glog.V(2).Infof("art: reading header of %s: %v", p, err)
			lastErr = errors.Wrapf(err, "art: reading header of %s", p)
			continue
		}
		if n := frm.WorstCaseSize(h); n > size {
			size = n
		}
	}
	if size == 0 {
		if lastErr == nil {
			lastErr = errors.Wrapf(ErrInvalidFID, "%s", fid.FID(key))
		}
		return 0, lastErr
	}
	return size, nil
}

// CacheRead decodes the sheet for key into buf, which must be as large as
// CacheSize reported. The localised copy is tried first; if it is missing or
// fails to decode, the default copy is used.
func (c *Catalog) CacheRead(key uint32, buf []byte) (interface{}, error) {
	if len(buf) < frm.HeaderSize {
		return nil, errors.Wrapf(frm.ErrShortArena, "%d byte buffer", len(buf))
	}
	tries, err := c.candidates(fid.FID(key))
	if err != nil {
		return nil, err
	}

	for i, p := range tries {
		s, err := c.readSheet(p, buf[frm.HeaderSize:])
		if err == nil {
			return s, nil
		}
		if i == len(tries)-1 {
			return nil, err
		}
		glog.V(2).Infof("art: %s: %v; trying %s", p, err, tries[i+1])
	}
	return nil, errors.Wrapf(ErrInvalidFID, "%s", fid.FID(key))
}

func (c *Catalog) readSheet(p string, arena []byte) (*frm.Sheet, error) {
	f, err := c.src.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "art: opening %s", p)
	}
	defer f.Close()
	s, err := frm.DecodeSheetInto(f, arena)
	if err != nil {
		return nil, errors.Wrapf(err, "art: decoding %s", p)
	}
	return s, nil
}

// CacheFree releases a sheet returned by CacheRead.
func (c *Catalog) CacheFree(v interface{}) {
	if s, ok := v.(*frm.Sheet); ok {
		s.Release()
	}
}
