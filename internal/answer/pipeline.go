package answer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
)

// Report is the outcome of answering one question.
type Report struct {
	Query  string           `json:"query"`
	Topic  string           `json:"topic"`
	Title  string           `json:"title"`
	URL    string           `json:"url"`
	Chunks int              `json:"chunks"`
	Tier   model.SearchTier `json:"tier"`
	Answer string           `json:"answer"`
}

// Pipeline runs the stages in order. Failures before retrieval abort the
// run; from retrieval on a report with an answer is always produced.
type Pipeline struct {
	topics    *TopicResolver
	fetcher   *ArticleFetcher
	chunker   *TextChunker
	chunks    *ChunkStore
	retriever *ContextRetriever
	generator *AnswerGenerator
}

// NewPipeline wires the stages together.
func NewPipeline(
	topics *TopicResolver,
	fetcher *ArticleFetcher,
	chunker *TextChunker,
	chunks *ChunkStore,
	retriever *ContextRetriever,
	generator *AnswerGenerator,
) *Pipeline {
	return &Pipeline{
		topics:    topics,
		fetcher:   fetcher,
		chunker:   chunker,
		chunks:    chunks,
		retriever: retriever,
		generator: generator,
	}
}

// Run answers query.
func (p *Pipeline) Run(ctx context.Context, query string) (*Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}
	log := zap.L().With(zap.String("query", query))
	log.Info("answer: starting")

	topic, err := p.topics.Resolve(ctx, query)
	if err != nil {
		log.Error("answer: resolve topic failed", zap.Error(err))
		return nil, err
	}

	article, err := p.fetcher.Fetch(ctx, topic)
	if err != nil {
		return nil, err
	}

	texts, err := p.chunker.Chunk(ctx, article)
	if err != nil {
		log.Error("answer: chunk article failed", zap.Error(err))
		return nil, err
	}

	stored, err := p.chunks.Save(ctx, article.Title, texts)
	if err != nil {
		log.Error("answer: store chunks failed", zap.Error(err))
		return nil, err
	}

	rc := p.retriever.Retrieve(ctx, query)
	answer := p.generator.Generate(ctx, query, rc.String())

	log.Info("answer: done", zap.String("topic", topic), zap.String("tier", string(rc.Tier)))
	return &Report{
		Query:  query,
		Topic:  topic,
		Title:  article.Title,
		URL:    article.URL,
		Chunks: len(stored),
		Tier:   rc.Tier,
		Answer: answer,
	}, nil
}
