package music

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kiranshivaraju/artscan/internal/prompts"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Generation outcomes reported to the Observer.
const (
	OutcomeSuccess      = "success"
	OutcomeSubmitFailed = "submit_failed"
	OutcomeTaskFailed   = "task_failed"
	OutcomeEmptyTracks  = "empty_tracks"
	OutcomeTimeout      = "timeout"
	OutcomeRejected     = "rejected"
	OutcomeCancelled    = "cancelled"
)

// Settings are the fixed submission parameters.
type Settings struct {
	Model       string
	AudioWeight float64
	CallbackURL string
}

// Generator submits a task for a prompt and waits for its audio.
type Generator struct {
	client   Client
	poller   *Poller
	catalog  prompts.Catalog
	settings Settings
	observer Observer
}

// NewGenerator wires a client and poller. observer may be nil.
func NewGenerator(client Client, poller *Poller, catalog prompts.Catalog, settings Settings, observer Observer) *Generator {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Generator{
		client:   client,
		poller:   poller,
		catalog:  catalog,
		settings: settings,
		observer: observer,
	}
}

// Submit starts an instrumental generation styled for mode.
func (g *Generator) Submit(ctx context.Context, prompt string, mode models.Mode) (string, error) {
	p := g.catalog.For(mode)
	return g.client.Submit(ctx, GenerateRequest{
		Prompt:       prompt,
		CustomMode:   false,
		Instrumental: true,
		Style:        p.MusicStyle,
		NegativeTags: p.MusicNegativeTags,
		Model:        g.settings.Model,
		AudioWeight:  g.settings.AudioWeight,
		CallBackURL:  g.settings.CallbackURL,
	})
}

// Poll waits for a previously submitted task.
func (g *Generator) Poll(ctx context.Context, taskID string) (string, error) {
	return g.poller.Poll(ctx, taskID)
}

// Generate runs Submit then Poll. Music is optional: every failure is logged
// and yields an empty URL.
func (g *Generator) Generate(ctx context.Context, prompt string, mode models.Mode) string {
	taskID, err := g.Submit(ctx, prompt, mode)
	if err != nil {
		g.observer.GenerationFinished(OutcomeSubmitFailed)
		slog.Warn("music task submission failed", "mode", mode, "error", err)
		return ""
	}
	slog.Info("music task submitted", "mode", mode, "task_id", taskID)

	url, err := g.Poll(ctx, taskID)
	if err != nil {
		g.observer.GenerationFinished(outcomeOf(err))
		slog.Warn("music generation failed", "mode", mode, "task_id", taskID, "error", err)
		return ""
	}
	g.observer.GenerationFinished(OutcomeSuccess)
	return url
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrTaskFailed):
		return OutcomeTaskFailed
	case errors.Is(err, ErrEmptyTrackList):
		return OutcomeEmptyTracks
	case errors.Is(err, ErrPollTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrLookupRejected):
		return OutcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeTimeout
	}
}
