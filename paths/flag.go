package paths

import (
	"flag"
	"strings"
)

type dirList []string

func (d *dirList) String() string {
	return strings.Join(*d, ",")
}

func (d *dirList) Set(v string) error {
	*d = append(*d, v)
	return nil
}

// SetupLayerFlag registers a repeatable directory flag with the passed name.
// Each occurrence adds one search root; later occurrences override earlier
// ones. The returned function builds Layers from the parsed flag and must only
// be called after flags are parsed.
func SetupLayerFlag(flagName string) func() *Layers {
	var dirs dirList
	flag.Var(&dirs, flagName, "Game data directory; repeat to stack override directories, later wins")
	return func() *Layers {
		if len(dirs) == 0 {
			return NewFromDirs(".")
		}
		return NewFromDirs(dirs...)
	}
}
