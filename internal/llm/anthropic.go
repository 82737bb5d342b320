package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/pkg/anthropic"
)

const defaultMaxTokens = 1024

// Anthropic completes prompts with a Claude model.
type Anthropic struct {
	client anthropic.Client
	opts   Options
}

// NewAnthropic creates an Anthropic completer over client.
func NewAnthropic(client anthropic.Client, opts Options) *Anthropic {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Anthropic{client: client, opts: opts}
}

func (a *Anthropic) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := a.opts.Temperature
	req := anthropic.MessageRequest{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	if p.System != "" {
		req.System = []anthropic.SystemBlock{{Text: p.System}}
	}

	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic generate")
	}

	zap.L().Debug("llm: anthropic completion",
		zap.String("model", resp.Model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return strings.TrimSpace(resp.Text()), nil
}
