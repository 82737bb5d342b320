package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/internal/store"
)

const (
	defaultRetrievalLimit      = 5
	defaultSimilarityThreshold = 0.5
	logSnippetLen              = 100
)

// Strategy is one retrieval tier of the fallback chain.
type Strategy struct {
	Tier   model.SearchTier
	Search func(ctx context.Context, st store.Store, query string) ([]model.RetrievedChunk, error)
}

// RetrievalOptions tunes the default strategies.
type RetrievalOptions struct {
	Limit               int
	SimilarityThreshold float64
}

// DefaultStrategies returns the fallback chain in order: managed search
// index, similarity function, substring containment.
func DefaultStrategies(opts RetrievalOptions) []Strategy {
	if opts.Limit <= 0 {
		opts.Limit = defaultRetrievalLimit
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = defaultSimilarityThreshold
	}
	return []Strategy{
		{
			Tier: model.SearchTierIndex,
			Search: func(ctx context.Context, st store.Store, q string) ([]model.RetrievedChunk, error) {
				return st.SearchIndex(ctx, q, opts.Limit)
			},
		},
		{
			Tier: model.SearchTierSimilarity,
			Search: func(ctx context.Context, st store.Store, q string) ([]model.RetrievedChunk, error) {
				return st.SearchSimilarity(ctx, q, opts.SimilarityThreshold, opts.Limit)
			},
		},
		{
			Tier: model.SearchTierSubstring,
			Search: func(ctx context.Context, st store.Store, q string) ([]model.RetrievedChunk, error) {
				return st.SearchSubstring(ctx, q, opts.Limit)
			},
		},
	}
}

// ContextRetriever builds the answer context for a query from stored chunks.
type ContextRetriever struct {
	st          store.Store
	strategies  []Strategy
	sampleLimit int
}

// NewContextRetriever creates a ContextRetriever that tries strategies in
// order and falls back to an unfiltered sample of up to sampleLimit chunks.
func NewContextRetriever(st store.Store, strategies []Strategy, sampleLimit int) *ContextRetriever {
	if sampleLimit <= 0 {
		sampleLimit = defaultRetrievalLimit
	}
	return &ContextRetriever{st: st, strategies: strategies, sampleLimit: sampleLimit}
}

// Retrieve never fails: the first strategy that returns without error
// decides the result, and an empty or failed chain falls back to a sample.
// When even the sample fails the context describes the failure.
func (r *ContextRetriever) Retrieve(ctx context.Context, query string) model.RetrievalContext {
	log := zap.L().With(zap.String("query", query))

	for _, s := range r.strategies {
		chunks, err := s.Search(ctx, r.st, query)
		if err != nil {
			log.Info("answer: retrieval tier unavailable", zap.String("tier", string(s.Tier)), zap.Error(err))
			continue
		}
		if len(chunks) == 0 {
			log.Info("answer: retrieval tier found no chunks", zap.String("tier", string(s.Tier)))
			break
		}
		logChunks(log, s.Tier, chunks)
		return model.NewRetrievalContext(s.Tier, chunks)
	}

	chunks, err := r.st.SampleChunks(ctx, r.sampleLimit)
	if err != nil {
		log.Error("answer: sample chunks failed", zap.Error(err))
		return model.RetrievalContext{
			Tier: model.SearchTierNone,
			Text: fmt.Sprintf("Unable to retrieve Wikipedia content due to an error: %v", err),
		}
	}
	if len(chunks) == 0 {
		log.Warn("answer: chunk table is empty")
		return model.RetrievalContext{Tier: model.SearchTierNone, Text: model.NoContentMarker}
	}
	logChunks(log, model.SearchTierSample, chunks)
	return model.NewRetrievalContext(model.SearchTierSample, chunks)
}

func logChunks(log *zap.Logger, tier model.SearchTier, chunks []model.RetrievedChunk) {
	log.Info("answer: retrieved chunks", zap.String("tier", string(tier)), zap.Int("count", len(chunks)))
	for _, c := range chunks {
		snippet := c.Text
		if r := []rune(snippet); len(r) > logSnippetLen {
			snippet = string(r[:logSnippetLen])
		}
		log.Debug("answer: chunk",
			zap.Float64("score", c.Score),
			zap.String("title", c.Title),
			zap.String("snippet", snippet),
		)
	}
}
