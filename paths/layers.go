package paths

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// File is what Layers hands out when opening a datafile.
type File interface {
	io.ReadCloser
	io.Seeker
}

// Layers is an ordered stack of search roots. The first root is the base
// install; each later root (a mod directory, a patch directory) overrides the
// ones before it.
//
// Names passed to Layers use forward slashes and are relative to each root.
// Lookups are case-insensitive when the exact name is not present, since game
// data is routinely shipped with inconsistent casing.
type Layers struct {
	roots []billy.Filesystem
}

// New creates Layers from filesystems ordered lowest priority first.
func New(roots ...billy.Filesystem) *Layers {
	return &Layers{roots: roots}
}

// NewFromDirs creates Layers rooted at the passed local directories, ordered
// lowest priority first.
func NewFromDirs(dirs ...string) *Layers {
	roots := make([]billy.Filesystem, 0, len(dirs))
	for _, dir := range dirs {
		roots = append(roots, osfs.New(dir))
	}
	return New(roots...)
}

// Len returns the number of search roots.
func (l *Layers) Len() int {
	return len(l.roots)
}

// Open opens name in the highest-priority root that has it.
func (l *Layers) Open(name string) (File, error) {
	for i := len(l.roots) - 1; i >= 0; i-- {
		f, err := openFold(l.roots[i], name)
		if err == nil {
			return f, nil
		}
	}
	return nil, errors.Wrapf(os.ErrNotExist, "paths: open %q", name)
}

// OpenAll opens every copy of name, ordered lowest priority first. It returns
// no error when no copy exists; the caller decides whether that is fatal.
func (l *Layers) OpenAll(name string) ([]File, error) {
	var files []File
	for _, root := range l.roots {
		f, err := openFold(root, name)
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				glog.Warningf("paths: skipping unreadable copy of %q: %v", name, err)
			}
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// Stat returns information on name as found in the highest-priority root.
func (l *Layers) Stat(name string) (os.FileInfo, error) {
	for i := len(l.roots) - 1; i >= 0; i-- {
		if actual, err := resolveFold(l.roots[i], name); err == nil {
			return l.roots[i].Stat(actual)
		}
	}
	return nil, errors.Wrapf(os.ErrNotExist, "paths: stat %q", name)
}

// Exists reports whether any root has a regular file called name.
func (l *Layers) Exists(name string) bool {
	fi, err := l.Stat(name)
	return err == nil && !fi.IsDir()
}

// ReadDir returns the names of regular files in dir across all roots, sorted
// and with case-insensitive duplicates removed. A name present in several
// roots is reported with the casing of the highest-priority root.
func (l *Layers) ReadDir(dir string) ([]string, error) {
	seen := make(map[string]string)
	found := false
	for _, root := range l.roots {
		actual, err := resolveFold(root, dir)
		if err != nil {
			continue
		}
		infos, err := root.ReadDir(dirOrRoot(actual))
		if err != nil {
			glog.Warningf("paths: reading %q: %v", dir, err)
			continue
		}
		found = true
		for _, fi := range infos {
			if fi.IsDir() {
				continue
			}
			seen[strings.ToLower(fi.Name())] = fi.Name()
		}
	}
	if !found {
		return nil, errors.Wrapf(os.ErrNotExist, "paths: read dir %q", dir)
	}

	names := make([]string, 0, len(seen))
	for _, n := range seen {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}

func openFold(fs billy.Filesystem, name string) (billy.File, error) {
	actual, err := resolveFold(fs, name)
	if err != nil {
		return nil, err
	}
	return fs.Open(actual)
}

// resolveFold maps name onto the casing actually present in fs, one path
// element at a time.
func resolveFold(fs billy.Filesystem, name string) (string, error) {
	name = path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))[1:]
	if name == "" {
		return "", nil
	}
	if _, err := fs.Stat(name); err == nil {
		return name, nil
	}

	actual := ""
	for _, elem := range strings.Split(name, "/") {
		infos, err := fs.ReadDir(dirOrRoot(actual))
		if err != nil {
			return "", err
		}
		match := ""
		for _, fi := range infos {
			if strings.EqualFold(fi.Name(), elem) {
				match = fi.Name()
				break
			}
		}
		if match == "" {
			return "", errors.Wrapf(os.ErrNotExist, "paths: %q", name)
		}
		actual = path.Join(actual, match)
	}
	return actual, nil
}

func dirOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
