package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/artscan/internal/ai/openai"
	"github.com/kiranshivaraju/artscan/internal/config"
	"github.com/kiranshivaraju/artscan/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = models.Image{Data: []byte("img"), MIMEType: "image/png"}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *openai.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openai.NewProvider(config.VisionConfig{
		Provider: "navigator",
		BaseURL:  srv.URL + "/v1/",
		APIKey:   "sk-test",
		Model:    "mistral-small-3.1",
		Timeout:  2 * time.Second,
	})
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "mistral-small-3.1",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
	}
}

func TestComplete_SendsPromptAndImage(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("  A painting.  "))
	})

	out, err := p.Complete(context.Background(), "Describe it", testImage)
	require.NoError(t, err)
	assert.Equal(t, "  A painting.  ", out, "content is returned verbatim")

	assert.Equal(t, "mistral-small-3.1", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "Describe it", parts[0].(map[string]any)["text"])
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"]
	assert.Equal(t, testImage.DataURL(), imageURL)
}

func TestComplete_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})

	_, err := p.Complete(context.Background(), "p", testImage)
	assert.ErrorIs(t, err, models.ErrInvalidResponse)
}

func TestComplete_Non2xxIsRejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	_, err := p.Complete(context.Background(), "p", testImage)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProviderRejected)
	assert.Contains(t, err.Error(), "401")
}

func TestComplete_ServerErrorWithoutJSONIsRejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := p.Complete(context.Background(), "p", testImage)
	assert.ErrorIs(t, err, models.ErrProviderRejected)
}

func TestComplete_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := openai.NewProvider(config.VisionConfig{Provider: "ollama", BaseURL: url + "/v1", Model: "llava", Timeout: time.Second})
	_, err := p.Complete(context.Background(), "p", testImage)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestComplete_ContextDeadline(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, "p", testImage)
	assert.ErrorIs(t, err, models.ErrInferenceTimeout)
}

func TestProvider_Name(t *testing.T) {
	p := openai.NewProvider(config.VisionConfig{Provider: "vllm", BaseURL: "http://localhost:8000/v1"})
	assert.Equal(t, "vllm", p.Name())
}
