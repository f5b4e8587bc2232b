package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Mode selects the kind of subject being analyzed. It drives prompts,
// fallbacks, music style and tag vocabulary.
type Mode string

const (
	ModeMuseum    Mode = "museum"
	ModeMonuments Mode = "monuments"
	ModeLandscape Mode = "landscape"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeMuseum, ModeMonuments, ModeLandscape}

// ParseMode validates a raw mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("mode must be one of museum, monuments, landscape; got %q", s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeMuseum, ModeMonuments, ModeLandscape:
		return true
	}
	return false
}

// SubjectType is the singular noun stored in record metadata.
func (m Mode) SubjectType() string {
	switch m {
	case ModeMuseum:
		return "painting"
	case ModeMonuments:
		return "monument"
	default:
		return "landscape"
	}
}

// AnalysisRequest is the input to one analysis. Immutable once created.
type AnalysisRequest struct {
	// ImageIdentity is an opaque content reference: the client URI or a
	// sha256 digest of the uploaded bytes. Cache hits require exact equality.
	ImageIdentity string
	Mode          Mode
	Image         Image
	// FetchImage, when set, supplies Image lazily. It is called only after
	// the identity lookup misses.
	FetchImage ImageFetcher
}

// AnalysisResult is produced once per request and never mutated afterwards.
type AnalysisResult struct {
	// ID is nil when the result could not be persisted.
	ID             *uuid.UUID `json:"id,omitempty"`
	Name           string     `json:"name"`
	Creator        string     `json:"creator"`
	Category       string     `json:"category"`
	HistoricalText string     `json:"historical_text"` // at most 500 characters
	ImmersiveText  string     `json:"immersive_text"`  // at most 400 characters
	AudioURL       string     `json:"audio_url,omitempty"`
	Mode           Mode       `json:"mode"`
	ImageIdentity  string     `json:"image_identity"`
	Tags           []string   `json:"tags"`
	Reference      *Reference `json:"reference,omitempty"`
	Source         string     `json:"source"`
}

// Result sources reported to clients.
const (
	SourceFresh         = "fresh"
	SourceCacheIdentity = "cache_identity"
	SourceCacheName     = "cache_name"
)

// Reference is optional encyclopedia enrichment for a result.
type Reference struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	URL        string `json:"url,omitempty"`
	Creator    string `json:"creator,omitempty"`
	IsArtPiece bool   `json:"is_art_piece"`
	WikidataID string `json:"wikidata_id,omitempty"`
}

// Identification is the subject triple returned by the identification prompt.
type Identification struct {
	Name     string `json:"name"     yaml:"name"`
	Creator  string `json:"creator"  yaml:"creator"`
	Category string `json:"category" yaml:"category"`
	// Defaulted is set when the mode defaults stand in for the subject name.
	Defaulted bool `json:"-" yaml:"-"`
}

// Extraction is the full output of the metadata extraction stage.
type Extraction struct {
	Identification
	HistoricalText string
	ImmersiveText  string
}
