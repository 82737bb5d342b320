package answer

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/pkg/wikipedia"
)

// ArticleFetcher retrieves the full text of an article by exact title.
type ArticleFetcher struct {
	wiki    wikipedia.Client
	baseURL string
}

// NewArticleFetcher creates an ArticleFetcher. baseURL is used to build the
// reported article URL.
func NewArticleFetcher(wiki wikipedia.Client, baseURL string) *ArticleFetcher {
	return &ArticleFetcher{wiki: wiki, baseURL: baseURL}
}

// Fetch returns the article titled topic. A missing or ambiguous title is an
// ArticleNotFoundError; an article never comes back with empty text.
func (f *ArticleFetcher) Fetch(ctx context.Context, topic string) (*model.Article, error) {
	articleURL := wikipedia.ArticleURL(f.baseURL, topic)
	log := zap.L().With(zap.String("topic", topic), zap.String("url", articleURL))
	log.Info("answer: fetching article")

	page, err := f.wiki.GetPage(ctx, topic)
	if err != nil {
		if errors.Is(err, wikipedia.ErrPageNotFound) {
			log.Warn("answer: article not found", zap.Error(err))
			return nil, &model.ArticleNotFoundError{Title: topic, Reason: err.Error()}
		}
		log.Error("answer: fetch article failed", zap.Error(err))
		return nil, model.NewUpstreamError("wikipedia", "fetch article", err)
	}

	if strings.TrimSpace(page.Extract) == "" {
		log.Warn("answer: article has no text")
		return nil, &model.ArticleNotFoundError{Title: topic, Reason: "article has no text"}
	}

	if page.URL != "" {
		articleURL = page.URL
	}
	return &model.Article{
		Title:   page.Title,
		URL:     articleURL,
		Content: page.Extract,
	}, nil
}
