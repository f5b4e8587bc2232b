package ai

import (
	"fmt"

	"github.com/kiranshivaraju/artscan/internal/ai/openai"
	"github.com/kiranshivaraju/artscan/internal/config"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// NewProvider constructs the vision provider named in config.
// Called once at server startup. Every supported backend speaks the OpenAI
// chat completions protocol, so they share one implementation and differ
// only in base URL, key and model.
func NewProvider(cfg config.VisionConfig) (models.VisionProvider, error) {
	switch cfg.Provider {
	case "navigator", "openai", "ollama", "vllm":
		return openai.NewProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q: must be one of navigator, openai, ollama, vllm", cfg.Provider)
	}
}
