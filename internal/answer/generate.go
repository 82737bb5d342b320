package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/llm"
)

const answerSystemPrompt = "You are a knowledgeable assistant that answers user queries based on provided Wikipedia content. If the context doesn't contain relevant information, say so."

const answerUserPrompt = "Using the following Wikipedia content, answer the query: %s\n\nContext:\n%s"

// AnswerGenerator produces the final answer from the retrieved context.
type AnswerGenerator struct {
	llm llm.Completer
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(c llm.Completer) *AnswerGenerator {
	return &AnswerGenerator{llm: c}
}

// Generate always returns text: on failure it returns the error message
// instead of propagating it.
func (g *AnswerGenerator) Generate(ctx context.Context, query, contextText string) string {
	out, err := g.llm.Complete(ctx, llm.Prompt{
		System: answerSystemPrompt,
		User:   fmt.Sprintf(answerUserPrompt, query, contextText),
	})
	if err != nil {
		zap.L().Error("answer: generate failed", zap.String("query", query), zap.Error(err))
		return fmt.Sprintf("Error generating answer: %v", err)
	}
	return out
}
