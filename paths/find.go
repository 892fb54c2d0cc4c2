// Package paths locates game datafiles across a stack of search roots: the
// base install first, then any number of override directories such as mods.
package paths

import (
	"path"

	"github.com/golang/glog"
)

// Find locates the passed datafile name and returns a path describing where
// the highest-priority copy lives, suitable for diagnostics and for
// Last-Modified style bookkeeping.
//
// For example, for "art/critters/critters.lst" it may return
// "/games/fallout2/mods/mymod/art/critters/CRITTERS.LST".
//
// An empty string is returned if no root has the file.
func (l *Layers) Find(name string) string {
	for i := len(l.roots) - 1; i >= 0; i-- {
		actual, err := resolveFold(l.roots[i], name)
		if err != nil {
			continue
		}
		found := path.Join(l.roots[i].Root(), actual)
		glog.V(2).Infof("paths.Find(%q)=%s", name, found)
		return found
	}
	return ""
}
