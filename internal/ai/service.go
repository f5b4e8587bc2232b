package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/artscan/internal/prompts"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Character limits for the two free-text descriptions.
const (
	MaxHistoricalChars = 500
	MaxImmersiveChars  = 400
)

const ellipsis = "..."

// Extraction step names, used in errors and logs.
const (
	StepIdentify   = "identify"
	StepHistorical = "historical"
	StepImmersive  = "immersive"
)

// Extractor runs the three vision prompts of the metadata extraction stage.
// It keeps no state between calls.
type Extractor struct {
	provider models.VisionProvider
	catalog  prompts.Catalog
	timeout  time.Duration
}

// NewExtractor creates an Extractor. timeout bounds each individual provider call.
func NewExtractor(provider models.VisionProvider, catalog prompts.Catalog, timeout time.Duration) *Extractor {
	return &Extractor{
		provider: provider,
		catalog:  catalog,
		timeout:  timeout,
	}
}

// Provider returns the name of the underlying vision provider.
func (e *Extractor) Provider() string { return e.provider.Name() }

// Extract identifies the subject and produces both descriptions, in order.
// Only an unparseable identification is recovered from; any provider failure
// aborts the whole extraction.
func (e *Extractor) Extract(ctx context.Context, image models.Image, mode models.Mode) (models.Extraction, error) {
	ident, err := e.Identify(ctx, image, mode)
	if err != nil {
		return models.Extraction{}, err
	}
	return e.Describe(ctx, image, mode, ident)
}

// Identify runs the identification prompt alone. Output that is not valid
// JSON yields the mode defaults instead of an error.
func (e *Extractor) Identify(ctx context.Context, image models.Image, mode models.Mode) (models.Identification, error) {
	content, err := e.complete(ctx, StepIdentify, e.catalog.For(mode).Identify, image)
	if errors.Is(err, ErrInvalidResponse) {
		// A completion with no content is treated like unparseable output.
		content, err = "", nil
	}
	if err != nil {
		return models.Identification{}, err
	}

	ident, ok := parseIdentification(content, e.catalog.Defaults(mode))
	if !ok {
		slog.Warn("identification output is not valid JSON, using defaults",
			"mode", mode, "provider", e.provider.Name())
	}
	return ident, nil
}

// Describe runs the historical and immersive prompts for an already
// identified subject and applies the hard character limits.
func (e *Extractor) Describe(ctx context.Context, image models.Image, mode models.Mode, ident models.Identification) (models.Extraction, error) {
	p := e.catalog.For(mode)

	historical, err := e.complete(ctx, StepHistorical, p.Historical, image)
	if err != nil {
		return models.Extraction{}, err
	}

	immersive, err := e.complete(ctx, StepImmersive, p.Immersive, image)
	if err != nil {
		return models.Extraction{}, err
	}

	out := models.Extraction{
		Identification: ident,
		HistoricalText: TruncateChars(historical, MaxHistoricalChars),
		ImmersiveText:  TruncateChars(immersive, MaxImmersiveChars),
	}

	slog.Info("extraction complete",
		"mode", mode,
		"name", out.Name,
		"creator", out.Creator,
		"category", out.Category,
		"historical_len", utf8.RuneCountInString(out.HistoricalText),
		"immersive_len", utf8.RuneCountInString(out.ImmersiveText),
	)
	return out, nil
}

func (e *Extractor) complete(ctx context.Context, step, prompt string, image models.Image) (string, error) {
	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	content, err := e.provider.Complete(callCtx, prompt, image)
	if err != nil {
		return "", &StepError{Step: step, Err: err}
	}
	return content, nil
}

// parseIdentification decodes {name, creator, category}. Blank fields are
// filled from defaults; ok is false when the content is not a JSON object.
func parseIdentification(content string, defaults models.Identification) (models.Identification, bool) {
	var raw struct {
		Name     string `json:"name"`
		Creator  string `json:"creator"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		return defaults, false
	}

	ident := models.Identification{
		Name:     strings.TrimSpace(raw.Name),
		Creator:  strings.TrimSpace(raw.Creator),
		Category: strings.TrimSpace(raw.Category),
	}
	if ident.Name == "" {
		ident.Name = defaults.Name
		ident.Defaulted = true
	}
	if ident.Creator == "" {
		ident.Creator = defaults.Creator
	}
	if ident.Category == "" {
		ident.Category = defaults.Category
	}
	return ident, true
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// TruncateChars bounds s to limit characters. Longer input keeps its first
// limit-3 characters followed by "...", so the result is exactly limit long.
func TruncateChars(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	i := 0
	for pos := range s {
		if i == keep {
			return s[:pos] + ellipsis
		}
		i++
	}
	return s + ellipsis
}
