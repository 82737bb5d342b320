package answer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/internal/store"
)

// ChunkStore persists article chunks and keeps the search index current.
type ChunkStore struct {
	st store.Store
}

// NewChunkStore creates a ChunkStore over st.
func NewChunkStore(st store.Store) *ChunkStore {
	return &ChunkStore{st: st}
}

// Save replaces the stored chunks of title with texts and rebuilds the
// search index. It returns once the index reflects the new chunks.
func (s *ChunkStore) Save(ctx context.Context, title string, texts []string) ([]model.ArticleChunk, error) {
	if err := s.st.EnsureChunkTable(ctx); err != nil {
		return nil, eris.Wrap(err, "answer: ensure chunk table")
	}

	chunks := model.NewArticleChunks(title, texts)
	if err := s.st.ReplaceChunks(ctx, title, chunks); err != nil {
		return nil, eris.Wrapf(err, "answer: store chunks for %q", title)
	}

	if err := s.st.RebuildSearchIndex(ctx); err != nil {
		return nil, eris.Wrap(err, "answer: rebuild search index")
	}

	zap.L().Info("answer: stored chunks", zap.String("title", title), zap.Int("chunks", len(chunks)))
	return chunks, nil
}
