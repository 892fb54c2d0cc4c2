// Package config reads the settings the art layer depends on from the game's
// configuration files.
//
// Two INI files are consulted: the game configuration (fallout2.cfg), which
// supplies the language and the art cache budget, and the engine extension
// configuration (ddraw.ini), which names the critter art used for the default
// player appearance. Section and key names are case-insensitive; lines that
// do not parse are skipped.
package config

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const (
	DefaultLanguage     = "english"
	DefaultArtCacheSize = 8 // megabytes

	DefaultMaleModel        = "hmjmps"
	DefaultFemaleModel      = "hfjmps"
	DefaultMaleStartModel   = "hmwarr"
	DefaultFemaleStartModel = "hfprim"
)

// Config holds the settings used while building and serving art.
type Config struct {
	// Language selects art/<Language>/ as the first place to look for a file.
	Language string

	// ArtCacheSize is the art cache budget in megabytes.
	ArtCacheSize int

	// Critter art names for the player's default and starting appearance.
	MaleDefaultModel   string
	FemaleDefaultModel string
	MaleStartModel     string
	FemaleStartModel   string
}

// Default returns the configuration used when no file overrides anything.
func Default() Config {
	return Config{
		Language:           DefaultLanguage,
		ArtCacheSize:       DefaultArtCacheSize,
		MaleDefaultModel:   DefaultMaleModel,
		FemaleDefaultModel: DefaultFemaleModel,
		MaleStartModel:     DefaultMaleStartModel,
		FemaleStartModel:   DefaultFemaleStartModel,
	}
}

// ArtCacheBytes returns the art cache budget in bytes.
func (c Config) ArtCacheBytes() int {
	return c.ArtCacheSize * 1024 * 1024
}

var loadOptions = ini.LoadOptions{
	Insensitive:             true,
	SkipUnrecognizableLines: true,
	IgnoreInlineComment:     false,
	// Missing files are not an error; their settings keep their defaults.
	Loose: true,
}

// Load parses the game configuration and the engine extension configuration.
// Each source is a file name, a []byte or an io.ReadCloser, as accepted by
// ini.Load; a nil source is skipped.
func Load(game, ext interface{}) (Config, error) {
	c := Default()

	if game != nil {
		f, err := ini.LoadSources(loadOptions, game)
		if err != nil {
			return Config{}, errors.Wrap(err, "loading game configuration")
		}
		sys := f.Section("system")
		c.Language = sys.Key("language").MustString(DefaultLanguage)
		c.ArtCacheSize = sys.Key("art_cache_size").MustInt(DefaultArtCacheSize)
		if c.ArtCacheSize <= 0 {
			glog.Warningf("config: art_cache_size %d; using %d", c.ArtCacheSize, DefaultArtCacheSize)
			c.ArtCacheSize = DefaultArtCacheSize
		}
	}

	if ext != nil {
		f, err := ini.LoadSources(loadOptions, ext)
		if err != nil {
			return Config{}, errors.Wrap(err, "loading engine configuration")
		}
		misc := f.Section("Misc")
		c.MaleDefaultModel = misc.Key("MaleDefaultModel").MustString(DefaultMaleModel)
		c.FemaleDefaultModel = misc.Key("FemaleDefaultModel").MustString(DefaultFemaleModel)
		c.MaleStartModel = misc.Key("MaleStartModel").MustString(DefaultMaleStartModel)
		c.FemaleStartModel = misc.Key("FemaleStartModel").MustString(DefaultFemaleStartModel)
	}

	glog.V(2).Infof("config: language %q, art cache %d MB", c.Language, c.ArtCacheSize)
	return c, nil
}
