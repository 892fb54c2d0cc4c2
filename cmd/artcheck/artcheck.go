// Command artcheck loads every art file named by the name lists and reports
// the ones that are missing or fail to decode.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/bradfitz/iter"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/cambragol/fission-ce/art"
	"github.com/cambragol/fission-ce/cache"
	"github.com/cambragol/fission-ce/config"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/frm"
	"github.com/cambragol/fission-ce/paths"
)

var (
	jobs      = flag.Int("jobs", 8, "how many files to decode at once")
	rotations = flag.Bool("rotations", false, "also check the per-rotation files of critters")
	variants  = flag.String("variant_suffix", "_800", "report which rows have a variant with this suffix; empty to skip")
	gameCfg   = flag.String("game_cfg", "fallout2.cfg", "game configuration file")
	extCfg    = flag.String("ext_cfg", "ddraw.ini", "engine extension configuration file")

	layers = paths.SetupLayerFlag("data_dir")
)

type failure struct {
	fid  fid.FID
	path string
	err  error
}

type report struct {
	mu       sync.Mutex
	checked  int
	failures []failure
	variants map[fid.Category]int
}

func (r *report) add(f fid.FID, p string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checked++
	if err != nil {
		r.failures = append(r.failures, failure{fid: f, path: p, err: err})
	}
}

func (r *report) print(w io.Writer) {
	sort.Slice(r.failures, func(i, j int) bool { return r.failures[i].fid < r.failures[j].fid })
	for _, f := range r.failures {
		fmt.Fprintf(w, "FAIL %s %s: %v\n", f.fid, f.path, f.err)
	}
	for i := 0; i < fid.CategoryCount; i++ {
		if n := r.variants[fid.Category(i)]; n > 0 {
			fmt.Fprintf(w, "%s: %d row(s) with a %s variant\n", fid.Category(i), n, *variants)
		}
	}
	fmt.Fprintf(w, "%d file(s) checked, %d failure(s)\n", r.checked, len(r.failures))
}

// targets lists the FIDs to check: the first animation of every named row,
// and optionally every rotation of the critters' first animation.
func targets(c *art.Catalog, withRotations bool) []fid.FID {
	var fids []fid.FID
	for i := range iter.N(fid.CategoryCount) {
		category := fid.Category(i)
		idx := c.Index(category)
		for id := range iter.N(idx.Len()) {
			if n, _ := idx.Name(id); n == "" {
				continue
			}
			fids = append(fids, fid.Pack(category, id, art.AnimStand, art.WeaponNone, fid.NE))
			if category != fid.Critters || !withRotations {
				continue
			}
			for r := fid.NE + 1; r <= fid.NW; r++ {
				fids = append(fids, fid.Pack(category, id, art.AnimStand, art.WeaponNone, r))
			}
		}
	}
	return fids
}

// checkOne loads f through the cache and walks all of its frames.
func checkOne(c *art.Catalog, ch *cache.Cache, f fid.FID) (string, error) {
	p, err := c.FilePath(f)
	if err != nil {
		return "", err
	}
	s, h, err := art.Lock(ch, f)
	if err != nil {
		return p, err
	}
	defer art.Unlock(ch, h)

	if s.DecodedSize() > frm.WorstCaseSize(s.Header) {
		return p, fmt.Errorf("decoded to %d bytes, more than the %d estimated", s.DecodedSize(), frm.WorstCaseSize(s.Header))
	}
	for rot := 0; rot < frm.RotationCount; rot++ {
		for i := 0; i < s.Frames(); i++ {
			fr := s.Frame(i, rot)
			if fr == nil {
				return p, fmt.Errorf("rotation %d frame %d unreachable", rot, i)
			}
			if len(fr.Pixels) != fr.Width*fr.Height {
				return p, fmt.Errorf("rotation %d frame %d: %d pixels for %dx%d", rot, i, len(fr.Pixels), fr.Width, fr.Height)
			}
		}
	}
	return p, nil
}

func countVariants(c *art.Catalog, suffix string) map[fid.Category]int {
	counts := make(map[fid.Category]int)
	for i := range iter.N(fid.CategoryCount) {
		category := fid.Category(i)
		idx := c.Index(category)
		for id := range iter.N(idx.OriginalCount()) {
			if _, err := idx.FindVariant(id, suffix); err == nil {
				counts[category]++
			}
		}
	}
	return counts
}

func check(ctx context.Context, c *art.Catalog, ch *cache.Cache, fids []fid.FID, limit int) (*report, error) {
	r := &report{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, f := range fids {
		f := f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := checkOne(c, ch, f)
			glog.V(2).Infof("artcheck: %s %s: %v", f, p, err)
			r.add(f, p, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// sizeCache returns a cache large enough for limit of the largest sheets to
// be locked at once.
func sizeCache(c *art.Catalog, cfg config.Config, limit int) *cache.Cache {
	capacity := cfg.ArtCacheBytes()
	if min := limit * 16 << 20; capacity < min {
		capacity = min
	}
	return cache.New(c, capacity)
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if *jobs < 1 {
		glog.Exitf("artcheck: -jobs must be at least 1")
	}

	cfg, err := config.Load(*gameCfg, *extCfg)
	if err != nil {
		glog.Exitf("artcheck: %v", err)
	}
	c, err := art.New(layers(), cfg)
	if err != nil {
		glog.Exitf("artcheck: %v", err)
	}
	defer c.Close()

	r, err := check(context.Background(), c, sizeCache(c, cfg, *jobs), targets(c, *rotations), *jobs)
	if err != nil {
		glog.Exitf("artcheck: %v", err)
	}
	if *variants != "" {
		r.variants = countVariants(c, *variants)
	}
	r.print(os.Stdout)
	if len(r.failures) > 0 {
		os.Exit(1)
	}
}
