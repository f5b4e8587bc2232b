// Package prompts holds the per-mode prompt catalog: vision prompts, music
// style hints and identification fallbacks.
package prompts

import (
	_ "embed"
	"fmt"

	"github.com/kiranshivaraju/artscan/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultYAML []byte

// ModePrompts is the catalog entry for one mode.
type ModePrompts struct {
	Identify          string                `yaml:"identify"`
	Historical        string                `yaml:"historical"`
	Immersive         string                `yaml:"immersive"`
	MusicStyle        string                `yaml:"music_style"`
	MusicNegativeTags string                `yaml:"music_negative_tags"`
	Defaults          models.Identification `yaml:"defaults"`
}

// Catalog maps every mode to its prompts.
type Catalog map[models.Mode]ModePrompts

// Parse decodes a YAML catalog and checks that every mode is complete.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding prompt catalog: %w", err)
	}
	for _, m := range models.Modes {
		p, ok := c[m]
		if !ok {
			return nil, fmt.Errorf("prompt catalog: missing mode %q", m)
		}
		if p.Identify == "" || p.Historical == "" || p.Immersive == "" {
			return nil, fmt.Errorf("prompt catalog: mode %q needs identify, historical and immersive prompts", m)
		}
		if p.Defaults.Name == "" || p.Defaults.Creator == "" || p.Defaults.Category == "" {
			return nil, fmt.Errorf("prompt catalog: mode %q needs name, creator and category defaults", m)
		}
	}
	return c, nil
}

var builtin = mustParse(defaultYAML)

func mustParse(data []byte) Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the embedded catalog.
func Default() Catalog { return builtin }

// For returns the prompts of mode. Unknown modes fall back to landscape, the
// most generic subject.
func (c Catalog) For(mode models.Mode) ModePrompts {
	if p, ok := c[mode]; ok {
		return p
	}
	return c[models.ModeLandscape]
}

// Defaults returns the identification fallback for mode, marked as defaulted.
func (c Catalog) Defaults(mode models.Mode) models.Identification {
	d := c.For(mode).Defaults
	d.Defaulted = true
	return d
}
