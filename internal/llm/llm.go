// Package llm adapts chat-completion providers to the single-turn
// completion the pipelines need.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/warehouse-rag/internal/config"
	"github.com/sells-group/warehouse-rag/pkg/anthropic"
)

// DefaultAnthropicModel is used when the configured model names an OpenAI model.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Prompt is one system instruction plus one user message.
type Prompt struct {
	System string
	User   string
}

// Completer returns the model's reply to a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Options are the request settings shared by every provider.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// New builds the Completer selected by cfg.LLM.Provider.
func New(cfg *config.Config) (Completer, error) {
	opts := Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAI.Key, cfg.OpenAI.BaseURL, opts)
	case "anthropic":
		if opts.Model == "" || strings.HasPrefix(opts.Model, "gpt-") {
			opts.Model = DefaultAnthropicModel
		}
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), opts), nil
	default:
		return nil, eris.Errorf("llm: unsupported provider %q", cfg.LLM.Provider)
	}
}
