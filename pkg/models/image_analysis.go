package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageAnalysis is the persisted projection of an AnalysisResult. The JSON
// layout is the one the mobile client already speaks, so field names are
// kept as-is.
type ImageAnalysis struct {
	ID           uuid.UUID        `db:"id"            json:"id"`
	ImageName    string           `db:"image_name"    json:"image_name"`
	AnalysisType string           `db:"analysis_type" json:"analysis_type"`
	Descriptions []string         `db:"descriptions"  json:"descriptions"`
	Metadata     AnalysisMetadata `db:"metadata"      json:"metadata"`
	CreatedAt    time.Time        `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at"    json:"updated_at"`
}

// AnalysisMetadata is stored as JSONB.
type AnalysisMetadata struct {
	Creator          string   `json:"creator,omitempty"`
	Category         string   `json:"category,omitempty"`
	ImageURI         string   `json:"imageUri,omitempty"`
	AudioURI         string   `json:"audioUri,omitempty"`
	HistoricalPrompt string   `json:"historicalPrompt,omitempty"`
	ImmersivePrompt  string   `json:"immersivePrompt,omitempty"`
	Type             string   `json:"type,omitempty"`
	Emotions         []string `json:"emotions,omitempty"`
	Mode             string   `json:"mode,omitempty"`
}

// NewImageAnalysis projects a result into a record ready to be created.
func NewImageAnalysis(r AnalysisResult) *ImageAnalysis {
	now := time.Now().UTC()
	return &ImageAnalysis{
		ID:           uuid.New(),
		ImageName:    r.Name,
		AnalysisType: string(r.Mode),
		Descriptions: []string{r.HistoricalText, r.ImmersiveText},
		Metadata: AnalysisMetadata{
			Creator:          r.Creator,
			Category:         r.Category,
			ImageURI:         r.ImageIdentity,
			AudioURI:         r.AudioURL,
			HistoricalPrompt: r.HistoricalText,
			ImmersivePrompt:  r.ImmersiveText,
			Type:             r.Mode.SubjectType(),
			Emotions:         r.Tags,
			Mode:             string(r.Mode),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToResult rebuilds a result from a stored record. imageIdentity replaces
// the stored identity so name-path hits show the photo the user just took.
func (a *ImageAnalysis) ToResult(imageIdentity, source string) AnalysisResult {
	id := a.ID
	mode := Mode(a.Metadata.Mode)
	if !mode.Valid() {
		mode = Mode(a.AnalysisType)
	}
	return AnalysisResult{
		ID:             &id,
		Name:           a.ImageName,
		Creator:        a.Metadata.Creator,
		Category:       a.Metadata.Category,
		HistoricalText: firstNonEmpty(a.Metadata.HistoricalPrompt, a.description(0)),
		ImmersiveText:  firstNonEmpty(a.Metadata.ImmersivePrompt, a.description(1)),
		AudioURL:       a.Metadata.AudioURI,
		Mode:           mode,
		ImageIdentity:  imageIdentity,
		Tags:           a.Metadata.Emotions,
		Source:         source,
	}
}

func (a *ImageAnalysis) description(i int) string {
	if i < len(a.Descriptions) {
		return a.Descriptions[i]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
