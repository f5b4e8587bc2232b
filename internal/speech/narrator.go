package speech

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/artscan/internal/blob"
	"github.com/kiranshivaraju/artscan/internal/playback"
)

const audioContentType = "audio/mpeg"

// Synthesizer produces audio for text. *Client implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts Options) ([]byte, error)
	ResolveVoice(name string) (string, string, error)
}

// Narration is a stored audio rendition of some text.
type Narration struct {
	ID         uuid.UUID `json:"id"`
	Session    string    `json:"session"`
	Voice      string    `json:"voice"`
	URL        string    `json:"url"`
	Characters int       `json:"characters"`
	Bytes      int       `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Narrator synthesizes text and stores the audio. A session has at most one
// narration in flight; a new request stops the previous one.
type Narrator struct {
	synth    Synthesizer
	blobs    blob.Store
	channels *playback.Channels
}

// NewNarrator wires a synthesizer to blob storage through the playback channels.
func NewNarrator(synth Synthesizer, blobs blob.Store, channels *playback.Channels) *Narrator {
	return &Narrator{synth: synth, blobs: blobs, channels: channels}
}

// Narrate renders text for session. It returns playback.ErrStopped when a
// newer request on the same session, or Stop, interrupts it.
func (n *Narrator) Narrate(ctx context.Context, session, text string, opts Options) (*Narration, error) {
	voice, _, err := n.synth.ResolveVoice(opts.Voice)
	if err != nil {
		return nil, err
	}
	opts.Voice = voice

	var out *Narration
	err = n.channels.Play(ctx, session, func(ctx context.Context) error {
		audio, err := n.synth.Synthesize(ctx, text, opts)
		if err != nil {
			return err
		}

		id := uuid.New()
		url, err := n.blobs.Put(ctx, fmt.Sprintf("narrations/%s.mp3", id), audioContentType, audio)
		if err != nil {
			return fmt.Errorf("storing narration: %w", err)
		}

		out = &Narration{
			ID:         id,
			Session:    session,
			Voice:      voice,
			URL:        url,
			Characters: utf8.RuneCountInString(text),
			Bytes:      len(audio),
			CreatedAt:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("narration stored", "session", session, "voice", voice, "bytes", out.Bytes)
	return out, nil
}

// Stop interrupts the narration in flight for session.
func (n *Narrator) Stop(session string) bool {
	return n.channels.Stop(session)
}
