// Package lst reads the .lst name lists that map art ids to file names, and
// builds per-category indexes out of them.
//
// A name list is line oriented: each line holds one file name, optionally
// followed by a separator (space, comma, semicolon, tab) and an annotation
// that is ignored here. The line number is the id.
package lst

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// FilenameLength is the width of a name slot, terminator included. Names are
// truncated to FilenameLength-1 bytes.
const FilenameLength = 32

// MaxLayers bounds how many copies of one name list are merged. Copies past
// the limit are ignored.
const MaxLayers = 16

const terminators = " ,;\r\t\n"

// ReadList reads one name list. Empty lines yield empty names; they still
// take up an id. Lines of any length are accepted.
//
// If reading fails part way through, the names read so far are returned
// together with the error.
func ReadList(r io.Reader) ([]string, error) {
	var names []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return names, errors.Wrap(err, "reading name list")
		}
		if line != "" {
			names = append(names, slotName(line))
		}
		if err == io.EOF {
			return names, nil
		}
	}
}

// slotName cuts line at the first terminator and truncates it to fit a slot.
func slotName(line string) string {
	if i := strings.IndexAny(line, terminators); i >= 0 {
		line = line[:i]
	}
	if len(line) > FilenameLength-1 {
		line = line[:FilenameLength-1]
	}
	return line
}

// Merge combines several copies of one name list, ordered lowest priority
// first. The result is as long as the longest layer. For each row the last
// layer with a non-empty name at that row wins; layers too short to reach a
// row contribute nothing to it.
func Merge(layers [][]string) []string {
	n := 0
	for _, l := range layers {
		if len(l) > n {
			n = len(l)
		}
	}

	merged := make([]string, n)
	for row := range merged {
		for i := len(layers) - 1; i >= 0; i-- {
			if row < len(layers[i]) && layers[i][row] != "" {
				merged[row] = layers[i][row]
				break
			}
		}
	}
	return merged
}
