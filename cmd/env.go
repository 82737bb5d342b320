package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/answer"
	"github.com/sells-group/warehouse-rag/internal/filings"
	"github.com/sells-group/warehouse-rag/internal/llm"
	"github.com/sells-group/warehouse-rag/internal/store"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
	"github.com/sells-group/warehouse-rag/pkg/wikipedia"
)

// appEnv holds the store and whichever pipelines a command needs.
type appEnv struct {
	Store    store.Store
	Answer   *answer.Pipeline
	Ingestor *filings.Ingestor
	Queries  *filings.QueryEngine
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the warehouse selected by cfg.Warehouse.Driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Warehouse.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Warehouse.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Warehouse.DSN(), &store.PoolConfig{
			Schema:   cfg.Warehouse.Schema,
			MaxConns: cfg.Warehouse.MaxConns,
		})
	default:
		return nil, eris.Errorf("unsupported warehouse driver: %s", cfg.Warehouse.Driver)
	}
}

// initEnv validates config for mode and builds the environment. Callers
// should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st, Queries: filings.NewQueryEngine(st)}

	needAnswer := mode == "answer" || mode == "serve"
	needIngest := mode == "ingest" || mode == "serve"
	if !needAnswer && !needIngest {
		return env, nil
	}

	tl := newTensorlakeClient()
	pollOpts := []tensorlake.PollOption{
		tensorlake.WithPollTimeout(time.Duration(cfg.Tensorlake.PollTimeoutSecs) * time.Second),
	}

	if needAnswer {
		completer, err := llm.New(cfg)
		if err != nil {
			env.Close()
			return nil, err
		}
		wiki := wikipedia.NewClient(
			wikipedia.WithBaseURL(cfg.Wikipedia.BaseURL),
			wikipedia.WithUserAgent(cfg.Wikipedia.UserAgent),
			wikipedia.WithRateLimit(cfg.Wikipedia.RequestsPerSecond),
		)
		retriever := answer.NewContextRetriever(st, answer.DefaultStrategies(answer.RetrievalOptions{
			Limit:               cfg.Retrieval.Limit,
			SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		}), cfg.Retrieval.Limit)

		env.Answer = answer.NewPipeline(
			answer.NewTopicResolver(completer),
			answer.NewArticleFetcher(wiki, cfg.Wikipedia.BaseURL),
			answer.NewTextChunker(tl, pollOpts...),
			answer.NewChunkStore(st),
			retriever,
			answer.NewAnswerGenerator(completer),
		)
		zap.L().Info("answer pipeline ready", zap.String("llm", cfg.LLM.Provider))
	}

	if needIngest {
		env.Ingestor = filings.NewIngestor(st,
			filings.NewPageClassifier(tl),
			filings.NewStructuredExtractor(tl, pollOpts...),
			filings.NewResultWriter(tl, st, pollOpts...),
			filings.IngestOptions{
				MaxConcurrent: cfg.Ingest.MaxConcurrentDocuments,
				TaskTimeout:   time.Duration(cfg.Ingest.DocumentTimeoutSecs) * time.Second,
			},
		)
		zap.L().Info("ingestion pipeline ready", zap.Int("max_concurrent", cfg.Ingest.MaxConcurrentDocuments))
	}

	return env, nil
}

func newTensorlakeClient() tensorlake.Client {
	return tensorlake.NewClient(cfg.Tensorlake.Key,
		tensorlake.WithBaseURL(cfg.Tensorlake.BaseURL),
		tensorlake.WithRateLimit(cfg.Tensorlake.RequestsPerSecond),
	)
}
