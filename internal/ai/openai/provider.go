// Package openai implements models.VisionProvider against any OpenAI-compatible
// chat completions endpoint (NaviGator, OpenAI, Ollama, vLLM).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/artscan/internal/config"
	"github.com/kiranshivaraju/artscan/pkg/models"
	goopenai "github.com/sashabaranov/go-openai"
)

const maxTokens = 1024

// Provider implements models.VisionProvider using go-openai.
type Provider struct {
	client *goopenai.Client
	name   string
	model  string
}

// NewProvider builds a provider for cfg. The HTTP client timeout mirrors
// cfg.Timeout so a hung endpoint cannot outlive the per-call deadline.
func NewProvider(cfg config.VisionConfig) *Provider {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		client: goopenai.NewClientWithConfig(oc),
		name:   cfg.Provider,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string { return p.name }

// Complete sends prompt and image as a single user message.
func (p *Provider) Complete(ctx context.Context, prompt string, image models.Image) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{URL: image.DataURL()},
					},
				},
			},
		},
	}
	// Reasoning models reject max_tokens.
	if isReasoningModel(p.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", models.ErrInvalidResponse)
	}

	slog.Debug("vision completion",
		"provider", p.name,
		"model", p.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// classifyError maps go-openai failures onto the provider sentinels.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", models.ErrProviderRejected, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %v", models.ErrProviderRejected, reqErr.HTTPStatusCode, reqErr.Err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

var _ models.VisionProvider = (*Provider)(nil)
