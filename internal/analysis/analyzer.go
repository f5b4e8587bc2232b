// Package analysis assembles an AnalysisResult: it checks for a prior
// analysis of the same image or subject, and otherwise runs extraction,
// enrichment, music generation and tagging before persisting the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/artscan/internal/prompts"
	"github.com/kiranshivaraju/artscan/internal/store"
	"github.com/kiranshivaraju/artscan/internal/tags"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Lookup paths reported to the Observer.
const (
	PathIdentity = "identity"
	PathName     = "name"
)

// Outcomes reported to the Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeUnsaved     = "unsaved"
	OutcomeFailed      = "failed"
	OutcomeInvalidMode = "invalid_mode"
)

// ErrInvalidMode is returned for a request whose mode is not supported.
var ErrInvalidMode = errors.New("invalid analysis mode")

// AnalysisFailedError wraps an extraction failure. It aborts the analysis;
// no partial result is returned.
type AnalysisFailedError struct {
	Mode  models.Mode
	Cause error
}

func (e *AnalysisFailedError) Error() string {
	return fmt.Sprintf("analysis failed for mode %s: %v", e.Mode, e.Cause)
}

func (e *AnalysisFailedError) Unwrap() error { return e.Cause }

// Records is the persistence the analyzer needs. store.Store implements it.
type Records interface {
	FindByImageIdentity(ctx context.Context, identity string) (*models.ImageAnalysis, error)
	FindByName(ctx context.Context, name string) (*models.ImageAnalysis, error)
	CreateAnalysis(ctx context.Context, a *models.ImageAnalysis) error
}

// RecordCache is the fast path in front of Records. cache.Records implements it.
type RecordCache interface {
	ByIdentity(ctx context.Context, identity string) (*models.ImageAnalysis, bool, error)
	ByName(ctx context.Context, name string) (*models.ImageAnalysis, bool, error)
	Put(ctx context.Context, a *models.ImageAnalysis) error
}

// Extractor runs the vision prompts. ai.Extractor implements it.
type Extractor interface {
	Identify(ctx context.Context, image models.Image, mode models.Mode) (models.Identification, error)
	Describe(ctx context.Context, image models.Image, mode models.Mode, ident models.Identification) (models.Extraction, error)
}

// Enricher looks a subject up in an encyclopedia. It never fails; ok is
// false when nothing useful was found.
type Enricher interface {
	Lookup(ctx context.Context, title, artist string) (*models.Reference, bool)
}

// MusicGenerator produces an audio URL for a prompt, or "" on any failure.
type MusicGenerator interface {
	Generate(ctx context.Context, prompt string, mode models.Mode) string
}

// Observer receives analysis events.
type Observer interface {
	AnalysisFinished(mode models.Mode, source, outcome string, elapsed time.Duration)
	CacheLookup(path string, hit bool)
}

type noopObserver struct{}

func (noopObserver) AnalysisFinished(models.Mode, string, string, time.Duration) {}
func (noopObserver) CacheLookup(string, bool)                                    {}

// Analyzer orchestrates one analysis at a time per call; it holds no
// per-request state and is safe for concurrent use.
type Analyzer struct {
	records   Records
	extractor Extractor
	catalog   prompts.Catalog
	cache     RecordCache
	enricher  Enricher
	music     MusicGenerator
	observer  Observer
}

// Option configures optional collaborators.
type Option func(*Analyzer)

func WithCache(c RecordCache) Option    { return func(a *Analyzer) { a.cache = c } }
func WithEnricher(e Enricher) Option    { return func(a *Analyzer) { a.enricher = e } }
func WithMusic(m MusicGenerator) Option { return func(a *Analyzer) { a.music = m } }
func WithObserver(o Observer) Option    { return func(a *Analyzer) { a.observer = o } }

// NewAnalyzer creates an Analyzer over the required persistence and extractor.
func NewAnalyzer(records Records, extractor Extractor, catalog prompts.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		records:   records,
		extractor: extractor,
		catalog:   catalog,
		observer:  noopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the result for req, reusing a prior analysis when the
// same image or the same subject has been seen before.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	start := time.Now()
	if !req.Mode.Valid() {
		a.observer.AnalysisFinished(req.Mode, models.SourceFresh, OutcomeInvalidMode, time.Since(start))
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	if rec := a.findByIdentity(ctx, req.ImageIdentity); rec != nil {
		res := rec.ToResult(rec.Metadata.ImageURI, models.SourceCacheIdentity)
		slog.Info("analysis served from identity cache", "mode", req.Mode, "id", rec.ID)
		a.observer.AnalysisFinished(req.Mode, res.Source, OutcomeSuccess, time.Since(start))
		return &res, nil
	}

	if req.FetchImage != nil {
		image, err := req.FetchImage(ctx)
		if err != nil {
			a.observer.AnalysisFinished(req.Mode, models.SourceFresh, OutcomeFailed, time.Since(start))
			return nil, fmt.Errorf("loading image: %w", err)
		}
		req.Image = image
	}

	// The cheap identification call. A failure here is not fatal: the
	// full extraction below retries it and owns the hard-failure path.
	ident, identErr := a.extractor.Identify(ctx, req.Image, req.Mode)
	if identErr != nil {
		slog.Warn("identification for name lookup failed", "mode", req.Mode, "error", identErr)
	} else if !ident.Defaulted {
		if rec := a.findByName(ctx, ident.Name); rec != nil {
			res := rec.ToResult(req.ImageIdentity, models.SourceCacheName)
			slog.Info("analysis served from name cache", "mode", req.Mode, "name", ident.Name, "id", rec.ID)
			a.observer.AnalysisFinished(req.Mode, res.Source, OutcomeSuccess, time.Since(start))
			return &res, nil
		}
	}

	res, err := a.run(ctx, req, ident, identErr == nil)
	if err != nil {
		a.observer.AnalysisFinished(req.Mode, models.SourceFresh, OutcomeFailed, time.Since(start))
		return nil, err
	}

	outcome := OutcomeSuccess
	if !a.persist(ctx, res) {
		outcome = OutcomeUnsaved
	}
	a.observer.AnalysisFinished(req.Mode, res.Source, outcome, time.Since(start))
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, req models.AnalysisRequest, ident models.Identification, identified bool) (*models.AnalysisResult, error) {
	var (
		ext models.Extraction
		err error
	)
	if identified {
		ext, err = a.extractor.Describe(ctx, req.Image, req.Mode, ident)
	} else {
		ident, err = a.extractor.Identify(ctx, req.Image, req.Mode)
		if err == nil {
			ext, err = a.extractor.Describe(ctx, req.Image, req.Mode, ident)
		}
	}
	if err != nil {
		slog.Error("extraction failed", "mode", req.Mode, "error", err)
		return nil, &AnalysisFailedError{Mode: req.Mode, Cause: err}
	}

	res := &models.AnalysisResult{
		Name:           ext.Name,
		Creator:        ext.Creator,
		Category:       ext.Category,
		HistoricalText: ext.HistoricalText,
		ImmersiveText:  ext.ImmersiveText,
		Mode:           req.Mode,
		ImageIdentity:  req.ImageIdentity,
		Source:         models.SourceFresh,
	}

	a.enrich(ctx, res, ext.Identification)

	if a.music != nil {
		res.AudioURL = a.music.Generate(ctx, res.ImmersiveText, req.Mode)
	}
	res.Tags = tags.Derive(res.ImmersiveText, req.Mode)
	return res, nil
}

// enrich attaches an encyclopedia reference for museum and monument
// subjects. It only replaces fields that still hold mode defaults.
func (a *Analyzer) enrich(ctx context.Context, res *models.AnalysisResult, ident models.Identification) {
	if a.enricher == nil || ident.Defaulted || res.Mode == models.ModeLandscape {
		return
	}
	defaults := a.catalog.Defaults(res.Mode)

	artist := res.Creator
	if artist == defaults.Creator {
		artist = ""
	}
	ref, ok := a.enricher.Lookup(ctx, res.Name, artist)
	if !ok {
		return
	}
	res.Reference = ref

	if res.Creator == defaults.Creator && ref.Creator != "" {
		res.Creator = ref.Creator
	}
	if res.Category == defaults.Category && ref.IsArtPiece {
		res.Category = subjectCategory(res.Mode)
	}
}

func subjectCategory(m models.Mode) string {
	t := m.SubjectType()
	return strings.ToUpper(t[:1]) + t[1:]
}

// persist stores res and primes the lookup cache. It reports whether the
// result was saved; failures leave res without an ID.
func (a *Analyzer) persist(ctx context.Context, res *models.AnalysisResult) bool {
	rec := models.NewImageAnalysis(*res)
	if err := a.records.CreateAnalysis(ctx, rec); err != nil {
		slog.Warn("persisting analysis failed, returning unsaved result", "mode", res.Mode, "error", err)
		return false
	}
	id := rec.ID
	res.ID = &id

	if a.cache != nil {
		if err := a.cache.Put(ctx, rec); err != nil {
			slog.Warn("caching analysis failed", "id", rec.ID, "error", err)
		}
	}
	return true
}

func (a *Analyzer) findByIdentity(ctx context.Context, identity string) *models.ImageAnalysis {
	if identity == "" {
		return nil
	}
	rec := a.lookup(ctx, PathIdentity, identity,
		func(ctx context.Context) (*models.ImageAnalysis, bool, error) { return a.cache.ByIdentity(ctx, identity) },
		func(ctx context.Context) (*models.ImageAnalysis, error) { return a.records.FindByImageIdentity(ctx, identity) },
	)
	return rec
}

func (a *Analyzer) findByName(ctx context.Context, name string) *models.ImageAnalysis {
	return a.lookup(ctx, PathName, name,
		func(ctx context.Context) (*models.ImageAnalysis, bool, error) { return a.cache.ByName(ctx, name) },
		func(ctx context.Context) (*models.ImageAnalysis, error) { return a.records.FindByName(ctx, name) },
	)
}

// lookup tries the cache and then the database. Errors on either are
// logged and treated as a miss.
func (a *Analyzer) lookup(
	ctx context.Context,
	path, key string,
	fromCache func(context.Context) (*models.ImageAnalysis, bool, error),
	fromStore func(context.Context) (*models.ImageAnalysis, error),
) *models.ImageAnalysis {
	if a.cache != nil {
		rec, ok, err := fromCache(ctx)
		if err != nil {
			slog.Warn("cache lookup failed, treating as miss", "path", path, "error", err)
		} else if ok {
			a.observer.CacheLookup(path, true)
			return rec
		}
	}

	rec, err := fromStore(ctx)
	switch {
	case err == nil:
		a.observer.CacheLookup(path, true)
		if a.cache != nil {
			if err := a.cache.Put(ctx, rec); err != nil {
				slog.Warn("caching analysis failed", "id", rec.ID, "error", err)
			}
		}
		return rec
	case errors.Is(err, store.ErrNotFound):
	default:
		slog.Warn("record lookup failed, treating as miss", "path", path, "key", key, "error", err)
	}
	a.observer.CacheLookup(path, false)
	return nil
}
