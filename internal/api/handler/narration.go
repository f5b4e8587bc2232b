package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/internal/playback"
	"github.com/kiranshivaraju/artscan/internal/speech"
)

// Narrator defines the narration operations the handlers depend on.
type Narrator interface {
	Narrate(ctx context.Context, session, text string, opts speech.Options) (*speech.Narration, error)
	Stop(session string) bool
}

// QuotaReader reports speech provider usage.
type QuotaReader interface {
	Quota(ctx context.Context) (speech.Quota, error)
}

// Narrations serves the narration endpoints.
type Narrations struct {
	narrator Narrator
	quota    QuotaReader
}

func NewNarrations(n Narrator, q QuotaReader) *Narrations {
	return &Narrations{narrator: n, quota: q}
}

// Create handles POST /api/v1/narrations. A newer request for the same
// session stops this one, which then answers 409.
func (h *Narrations) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID       string   `json:"session_id"`
		Text            string   `json:"text"`
		Voice           string   `json:"voice"`
		Model           string   `json:"model_id"`
		Stability       *float64 `json:"stability"`
		SimilarityBoost *float64 `json:"similarity_boost"`
		Style           *float64 `json:"style"`
		SpeakerBoost    *bool    `json:"use_speaker_boost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		response.BadRequest(w, "session_id is required", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.BadRequest(w, "text is required", nil)
		return
	}

	n, err := h.narrator.Narrate(r.Context(), req.SessionID, req.Text, speech.Options{
		Voice:           req.Voice,
		Model:           req.Model,
		Stability:       req.Stability,
		SimilarityBoost: req.SimilarityBoost,
		Style:           req.Style,
		SpeakerBoost:    req.SpeakerBoost,
	})
	if err != nil {
		writeSpeechError(w, err)
		return
	}
	response.Created(w, n)
}

// Stop handles DELETE /api/v1/narrations/{sessionID}.
func (h *Narrations) Stop(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "sessionID")
	if !h.narrator.Stop(session) {
		response.NotFound(w, "No narration in progress for this session")
		return
	}
	response.NoContent(w)
}

// Quota handles GET /api/v1/narrations/quota.
func (h *Narrations) Quota(w http.ResponseWriter, r *http.Request) {
	q, err := h.quota.Quota(r.Context())
	if err != nil {
		writeSpeechError(w, err)
		return
	}
	response.JSON(w, map[string]int{
		"character_count": q.CharacterCount,
		"character_limit": q.CharacterLimit,
		"remaining":       q.Remaining(),
	})
}

// Voices handles GET /api/v1/narrations/voices.
func (h *Narrations) Voices(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, speech.VoiceNames())
}

func writeSpeechError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playback.ErrStopped):
		response.Error(w, http.StatusConflict, "NARRATION_STOPPED",
			"Narration was stopped before it finished", nil)
	case errors.Is(err, speech.ErrUnknownVoice), errors.Is(err, speech.ErrEmptyText):
		response.BadRequest(w, err.Error(), nil)
	case errors.Is(err, speech.ErrNotConfigured):
		response.Error(w, http.StatusServiceUnavailable, "SPEECH_NOT_CONFIGURED",
			"Narration is not configured", nil)
	case errors.Is(err, speech.ErrSpeechTimeout):
		response.Error(w, http.StatusGatewayTimeout, "SPEECH_TIMEOUT",
			"The speech provider timed out", nil)
	case errors.Is(err, speech.ErrSpeechRejected), errors.Is(err, speech.ErrSpeechUnreachable):
		response.Error(w, http.StatusBadGateway, "SPEECH_PROVIDER_ERROR",
			"The speech provider could not synthesize the narration", nil)
	default:
		slog.Error("narration failed", "error", err)
		response.Internal(w, "Narration failed")
	}
}
