package speech_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/artscan/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_SendsRequest(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	c := speech.NewClient(srv.URL+"/", "xi-key", "eleven_turbo_v2_5", "Rachel", 5*time.Second)
	audio, err := c.Synthesize(context.Background(), "Hello gallery", speech.Options{Voice: "Adam"})
	require.NoError(t, err)

	assert.Equal(t, []byte("ID3audio"), audio)
	assert.Equal(t, "/text-to-speech/pNInz6obpgDQGcFmaJgB", gotPath)
	assert.Equal(t, "xi-key", gotKey)
	assert.Equal(t, "Hello gallery", gotBody["text"])
	assert.Equal(t, "eleven_turbo_v2_5", gotBody["model_id"])

	settings := gotBody["voice_settings"].(map[string]any)
	assert.InDelta(t, 0.5, settings["stability"], 1e-9)
	assert.InDelta(t, 0.75, settings["similarity_boost"], 1e-9)
	assert.InDelta(t, 0.0, settings["style"], 1e-9)
	assert.Equal(t, true, settings["use_speaker_boost"])
}

func TestSynthesize_OverridesSettings(t *testing.T) {
	var gotBody struct {
		ModelID       string               `json:"model_id"`
		VoiceSettings speech.VoiceSettings `json:"voice_settings"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	stability, boost := 0.9, false
	c := speech.NewClient(srv.URL, "k", "eleven_turbo_v2_5", "Rachel", 5*time.Second)
	_, err := c.Synthesize(context.Background(), "text", speech.Options{
		Model:        "eleven_multilingual_v2",
		Stability:    &stability,
		SpeakerBoost: &boost,
	})
	require.NoError(t, err)

	assert.Equal(t, "eleven_multilingual_v2", gotBody.ModelID)
	assert.InDelta(t, 0.9, gotBody.VoiceSettings.Stability, 1e-9)
	assert.InDelta(t, 0.75, gotBody.VoiceSettings.SimilarityBoost, 1e-9)
	assert.False(t, gotBody.VoiceSettings.UseSpeakerBoost)
}

func TestSynthesize_Validation(t *testing.T) {
	c := speech.NewClient("http://127.0.0.1:1", "k", "m", "Rachel", time.Second)

	_, err := c.Synthesize(context.Background(), "  ", speech.Options{})
	assert.ErrorIs(t, err, speech.ErrEmptyText)

	_, err = c.Synthesize(context.Background(), "hi", speech.Options{Voice: "Nobody"})
	assert.ErrorIs(t, err, speech.ErrUnknownVoice)

	noKey := speech.NewClient("http://127.0.0.1:1", "", "m", "Rachel", time.Second)
	_, err = noKey.Synthesize(context.Background(), "hi", speech.Options{})
	assert.ErrorIs(t, err, speech.ErrNotConfigured)
}

func TestSynthesize_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota_exceeded"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := speech.NewClient(srv.URL, "k", "m", "Rachel", 5*time.Second)
	_, err := c.Synthesize(context.Background(), "hi", speech.Options{})
	require.ErrorIs(t, err, speech.ErrSpeechRejected)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "quota_exceeded")
}

func TestSynthesize_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := speech.NewClient(url, "k", "m", "Rachel", 5*time.Second)
	_, err := c.Synthesize(context.Background(), "hi", speech.Options{})
	assert.ErrorIs(t, err, speech.ErrSpeechUnreachable)
}

func TestQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		_, _ = w.Write([]byte(`{"subscription":{"tier":"starter","character_count":1200,"character_limit":30000}}`))
	}))
	defer srv.Close()

	c := speech.NewClient(srv.URL, "k", "m", "Rachel", 5*time.Second)
	q, err := c.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1200, q.CharacterCount)
	assert.Equal(t, 30000, q.CharacterLimit)
	assert.Equal(t, 28800, q.Remaining())

	assert.Equal(t, 0, speech.Quota{CharacterCount: 10, CharacterLimit: 5}.Remaining())
}

func TestResolveVoice(t *testing.T) {
	c := speech.NewClient("http://x", "k", "m", "Bella", time.Second)

	name, id, err := c.ResolveVoice("")
	require.NoError(t, err)
	assert.Equal(t, "Bella", name)
	assert.Equal(t, "EXAVITQu4vr4xnSDxMaL", id)

	_, _, err = c.ResolveVoice("rachel")
	assert.ErrorIs(t, err, speech.ErrUnknownVoice)

	names := speech.VoiceNames()
	assert.Len(t, names, len(speech.Voices))
	assert.Equal(t, "Adam", names[0])
}
