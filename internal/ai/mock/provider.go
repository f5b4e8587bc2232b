package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/kiranshivaraju/artscan/pkg/models"
)

// MockProvider satisfies models.VisionProvider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, prompt string, image models.Image) (string, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, prompt string, image models.Image) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, image)
	}
	return "", nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
// Identification prompts (those asking for JSON) get a JSON object, every
// other prompt gets a short description.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, prompt string, _ models.Image) (string, error) {
			if isIdentifyPrompt(prompt) {
				return `{"name":"The Starry Night","creator":"Vincent van Gogh","category":"Post-Impressionism"}`, nil
			}
			return "A swirling night sky rolls over a quiet village, calm and dreamlike.", nil
		},
	}
}

// NewScriptedProvider returns a MockProvider that answers calls in order
// from responses. Calls past the end repeat the last response.
func NewScriptedProvider(responses ...string) *MockProvider {
	var (
		mu    sync.Mutex
		calls int
	)
	return &MockProvider{
		Name_: "mock-scripted",
		CompleteFunc: func(_ context.Context, _ string, _ models.Image) (string, error) {
			if len(responses) == 0 {
				return "", nil
			}
			mu.Lock()
			defer mu.Unlock()
			i := calls
			if i >= len(responses) {
				i = len(responses) - 1
			}
			calls++
			return responses[i], nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ string, _ models.Image) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ string, _ models.Image) (string, error) {
			<-ctx.Done()
			return "", models.ErrInferenceTimeout
		},
	}
}

func isIdentifyPrompt(prompt string) bool {
	return strings.Contains(prompt, "JSON")
}

// Compile-time check that MockProvider implements VisionProvider.
var _ models.VisionProvider = (*MockProvider)(nil)
