package answer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
	"github.com/sells-group/warehouse-rag/pkg/wikipedia"
)

// TextChunker splits article text into section-aligned chunks with the
// document AI service.
type TextChunker struct {
	tl       tensorlake.Client
	pollOpts []tensorlake.PollOption
}

// NewTextChunker creates a TextChunker. pollOpts bound the wait for the
// parse job.
func NewTextChunker(tl tensorlake.Client, pollOpts ...tensorlake.PollOption) *TextChunker {
	return &TextChunker{tl: tl, pollOpts: pollOpts}
}

// Chunk returns the non-empty chunk texts of article in document order.
func (c *TextChunker) Chunk(ctx context.Context, article *model.Article) ([]string, error) {
	log := zap.L().With(zap.String("title", article.Title))

	upload, err := c.tl.UploadFile(ctx, wikipedia.Slug(article.Title)+".txt", []byte(article.Content))
	if err != nil {
		return nil, model.NewUpstreamError("tensorlake", "upload article", err)
	}

	job, err := c.tl.Parse(ctx, tensorlake.ParseRequest{
		FileID:         upload.FileID,
		MimeType:       "text/plain",
		ParsingOptions: &tensorlake.ParsingOptions{ChunkingStrategy: tensorlake.ChunkingSection},
	})
	if err != nil {
		return nil, model.NewUpstreamError("tensorlake", "start parse", err)
	}

	result, err := tensorlake.PollParse(ctx, c.tl, job.ParseID, c.pollOpts...)
	if err != nil {
		return nil, model.NewUpstreamError("tensorlake", "parse article", err)
	}

	texts := make([]string, 0, len(result.Chunks))
	for _, ch := range result.Chunks {
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		texts = append(texts, ch.Content)
	}

	log.Info("answer: chunked article",
		zap.String("parse_id", job.ParseID),
		zap.Int("chunks", len(texts)),
	)
	return texts, nil
}
