// Package answer implements the question-answering pipeline: resolve a topic,
// fetch and chunk its article, store the chunks, retrieve context and
// generate an answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/llm"
	"github.com/sells-group/warehouse-rag/internal/model"
)

const topicSystemPrompt = "You are a helpful assistant that extracts the main topic from a user query that would be best answered by a Wikipedia article. Return only the topic name, nothing else. The topic should be suitable for a Wikipedia URL."

const topicUserPrompt = "What Wikipedia article would best answer this query: %s"

// TopicResolver maps a free-text question to the title of the article most
// likely to answer it.
type TopicResolver struct {
	llm llm.Completer
}

// NewTopicResolver creates a TopicResolver.
func NewTopicResolver(c llm.Completer) *TopicResolver {
	return &TopicResolver{llm: c}
}

// Resolve returns the topic for query. It is not retried.
func (r *TopicResolver) Resolve(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", model.ErrEmptyQuery
	}

	out, err := r.llm.Complete(ctx, llm.Prompt{
		System: topicSystemPrompt,
		User:   fmt.Sprintf(topicUserPrompt, query),
	})
	if err != nil {
		return "", model.NewUpstreamError("llm", "resolve topic", err)
	}

	topic := strings.Trim(strings.TrimSpace(out), `"'`)
	if topic == "" {
		return "", model.NewUpstreamError("llm", "resolve topic", errors.New("empty completion"))
	}

	zap.L().Info("answer: resolved topic", zap.String("query", query), zap.String("topic", topic))
	return topic, nil
}
