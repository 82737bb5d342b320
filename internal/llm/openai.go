package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAI completes prompts with an OpenAI chat model through langchaingo.
type OpenAI struct {
	model llms.Model
	opts  Options
}

// NewOpenAI creates an OpenAI completer. An empty baseURL uses the public API.
func NewOpenAI(apiKey, baseURL string, opts Options) (*OpenAI, error) {
	clientOpts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(opts.Model),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create openai client")
	}
	return &OpenAI{model: client, opts: opts}, nil
}

// Complete sends p as a system and a human message and returns the first
// choice.
func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.System),
		llms.TextParts(llms.ChatMessageTypeHuman, p.User),
	}

	callOpts := []llms.CallOption{
		llms.WithModel(o.opts.Model),
		llms.WithTemperature(o.opts.Temperature),
	}
	if o.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(int(o.opts.MaxTokens)))
	}

	resp, err := o.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", eris.Wrap(err, "llm: openai generate")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: openai returned no choices")
	}

	choice := resp.Choices[0]
	zap.L().Debug("llm: openai completion",
		zap.String("model", o.opts.Model),
		zap.String("stop_reason", choice.StopReason),
	)
	return strings.TrimSpace(choice.Content), nil
}
