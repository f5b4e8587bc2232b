// Package tags derives short mood tags from generated description text.
package tags

import (
	"strings"

	"github.com/kiranshivaraju/artscan/pkg/models"
)

// MaxTags caps the number of derived tags.
const MaxTags = 3

// vocabularies are matched in order; earlier terms win when more than
// MaxTags appear in the text.
var vocabularies = map[models.Mode][]string{
	models.ModeMuseum: {
		"serene", "melancholic", "joyful", "dramatic", "mysterious",
		"romantic", "peaceful", "dreamy", "intense", "vibrant",
		"somber", "tender", "nostalgic", "haunting", "passionate",
		"calm", "turbulent", "playful", "solemn", "luminous",
	},
	models.ModeMonuments: {
		"majestic", "grand", "solemn", "awe", "ancient",
		"imposing", "timeless", "sacred", "proud", "peaceful",
		"mysterious", "serene", "powerful", "elegant", "monumental",
		"historic", "reverent", "triumphant", "enduring", "tranquil",
	},
	models.ModeLandscape: {
		"serene", "peaceful", "tranquil", "majestic", "wild",
		"calm", "vast", "misty", "radiant", "lush",
		"rugged", "dramatic", "gentle", "breathtaking", "mysterious",
		"refreshing", "solitary", "warm", "crisp", "timeless",
	},
}

var defaults = map[models.Mode][]string{
	models.ModeMuseum:    {"contemplative", "expressive", "timeless"},
	models.ModeMonuments: {"majestic", "historic", "awe-inspiring"},
	models.ModeLandscape: {"serene", "peaceful", "natural"},
}

// Derive returns up to MaxTags vocabulary terms of mode found in text,
// matched case-insensitively as substrings and listed in vocabulary order.
// When nothing matches it returns the mode's fixed fallback.
func Derive(text string, mode models.Mode) []string {
	lower := strings.ToLower(text)

	out := make([]string, 0, MaxTags)
	for _, term := range Vocabulary(mode) {
		if strings.Contains(lower, term) {
			out = append(out, term)
			if len(out) == MaxTags {
				break
			}
		}
	}
	if len(out) == 0 {
		return Defaults(mode)
	}
	return out
}

// Vocabulary returns a copy of the terms for mode. Unknown modes use landscape.
func Vocabulary(mode models.Mode) []string {
	v, ok := vocabularies[mode]
	if !ok {
		v = vocabularies[models.ModeLandscape]
	}
	return append([]string(nil), v...)
}

// Defaults returns a copy of the fallback tags for mode.
func Defaults(mode models.Mode) []string {
	d, ok := defaults[mode]
	if !ok {
		d = defaults[models.ModeLandscape]
	}
	return append([]string(nil), d...)
}
