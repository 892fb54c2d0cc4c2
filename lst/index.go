package lst

import (
	"path"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/paths"
)

// VariantSuffix marks alternate (high resolution) art that is appended to an
// index after the rows coming from the name lists.
const VariantSuffix = "_800.frm"

// ErrNotFound is returned when a name, id or variant cannot be resolved.
var ErrNotFound = errors.New("lst: not found")

// Source is what Build needs from the file system: every copy of a name list
// (lowest priority first), and the union of file names in a directory.
// *paths.Layers is a Source.
type Source interface {
	OpenAll(name string) ([]paths.File, error)
	ReadDir(dir string) ([]string, error)
}

// Index maps dense ids to file names for one art category.
//
// Rows below OriginalCount come from the merged name lists in file order.
// Rows at or above it were appended by variant discovery. An Index is
// immutable once Build returns.
type Index struct {
	category      string
	names         []string
	originalCount int
}

// NewIndex creates an index directly from names, treating all of them as
// original rows. It is mostly useful for tools and tests.
func NewIndex(category string, names []string) *Index {
	return &Index{
		category:      category,
		names:         append([]string(nil), names...),
		originalCount: len(names),
	}
}

// ListPath returns the path of a category's name list, relative to a search
// root.
func ListPath(category string) string {
	return path.Join("art", category, category+".lst")
}

// Build reads and merges every copy of art/<category>/<category>.lst in src,
// then appends the *_800.frm variants found in art/<category>/.
//
// Failing to open the name list at all is an error. A copy that fails part
// way through still contributes the rows read before the failure.
func Build(category string, src Source) (*Index, error) {
	listPath := ListPath(category)
	files, err := src.OpenAll(listPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", listPath)
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	var names []string
	switch {
	case len(files) == 0:
		return nil, errors.Wrapf(ErrNotFound, "no copy of %s", listPath)
	case len(files) == 1:
		names, err = ReadList(files[0])
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", listPath)
		}
	default:
		use := files
		if len(use) > MaxLayers {
			glog.Warningf("lst: %d copies of %s; only the first %d are merged", len(use), listPath, MaxLayers)
			use = use[:MaxLayers]
		}
		layers := make([][]string, 0, len(use))
		for i, f := range use {
			layer, err := ReadList(f)
			if err != nil {
				glog.Warningf("lst: layer %d of %s: keeping %d rows read before: %v", i, listPath, len(layer), err)
			}
			layers = append(layers, layer)
		}
		names = Merge(layers)
	}

	idx := &Index{
		category:      category,
		names:         names,
		originalCount: len(names),
	}

	dir := path.Join("art", category)
	found, err := src.ReadDir(dir)
	if err != nil {
		glog.V(2).Infof("lst: no variants for %s: %v", category, err)
		found = nil
	}
	added := idx.appendVariants(found)

	glog.V(2).Infof("lst: %s: %d rows from %d list(s), %d variant(s)", category, idx.originalCount, len(files), added)
	return idx, nil
}

// appendVariants appends each file name ending in VariantSuffix whose base
// name prefixes one of the original rows. Names are appended in the order
// given; the same base matching more than once appends more than one row.
func (idx *Index) appendVariants(files []string) int {
	added := 0
	for _, fn := range files {
		if len(fn) <= len(VariantSuffix) || !strings.EqualFold(fn[len(fn)-len(VariantSuffix):], VariantSuffix) {
			continue
		}
		base := fn[:len(fn)-len(VariantSuffix)]
		if len(base) > FilenameLength-1 {
			base = base[:FilenameLength-1]
		}
		for i := 0; i < idx.originalCount; i++ {
			if hasPrefixFold(idx.names[i], base) {
				idx.names = append(idx.names, slotName(fn))
				added++
				break
			}
		}
	}
	return added
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Category returns the category directory name the index was built for.
func (idx *Index) Category() string {
	return idx.category
}

// Len returns the number of rows, variants included.
func (idx *Index) Len() int {
	return len(idx.names)
}

// OriginalCount returns the number of rows that came from name lists.
func (idx *Index) OriginalCount() int {
	return idx.originalCount
}

// Name returns the file name at id.
func (idx *Index) Name(id int) (string, bool) {
	if id < 0 || id >= len(idx.names) {
		return "", false
	}
	return idx.names[id], true
}

// Names returns a copy of all rows.
func (idx *Index) Names() []string {
	return append([]string(nil), idx.names...)
}

// Lookup returns the first id whose name equals name, ignoring case.
func (idx *Index) Lookup(name string) (int, bool) {
	for i, n := range idx.names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return -1, false
}

// FindVariant returns the id of the appended variant of row base carrying
// suffix. The expected name is the base row's name with any .frm extension
// removed, followed by suffix and .frm. Only the appended region is searched.
func (idx *Index) FindVariant(base int, suffix string) (int, error) {
	name, ok := idx.Name(base)
	if !ok {
		return -1, errors.Wrapf(ErrNotFound, "%s id %d out of range [0,%d)", idx.category, base, len(idx.names))
	}

	stem := name
	if ext := path.Ext(stem); strings.EqualFold(ext, ".frm") {
		stem = stem[:len(stem)-len(ext)]
	}
	expected := stem + suffix + ".frm"
	if len(expected) >= FilenameLength {
		glog.Warningf("lst: variant name too long: %s%s", stem, suffix)
		return -1, errors.Wrapf(ErrNotFound, "variant name %q too long", expected)
	}

	for i := idx.originalCount; i < len(idx.names); i++ {
		if strings.EqualFold(idx.names[i], expected) {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrNotFound, "%s has no variant %q", idx.category, expected)
}
