package filings

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
)

// PageClassifier submits page classification jobs for filing documents.
type PageClassifier struct {
	tl tensorlake.Client
}

// NewPageClassifier creates a PageClassifier.
func NewPageClassifier(tl tensorlake.Client) *PageClassifier {
	return &PageClassifier{tl: tl}
}

// Classify submits one job per URL, in order. Documents whose submission
// fails are left out of the result and reported together in a
// *model.PartialClassificationError; the others proceed.
func (c *PageClassifier) Classify(ctx context.Context, urls []string) ([]model.FilingDocument, error) {
	docs := make([]model.FilingDocument, 0, len(urls))
	failed := make(map[string]error)

	for _, u := range urls {
		job, err := c.tl.Classify(ctx, tensorlake.ClassifyRequest{
			FileURL: u,
			PageClassifications: []tensorlake.PageClassConfig{
				{Name: RiskFactorsClass, Description: riskFactorsDescription},
			},
		})
		if err != nil {
			zap.L().Warn("filings: classify failed", zap.String("url", u), zap.Error(err))
			failed[u] = model.NewUpstreamError("tensorlake", "classify", err)
			continue
		}
		zap.L().Info("filings: classified", zap.String("url", u), zap.String("parse_id", job.ParseID))
		docs = append(docs, model.FilingDocument{URL: u, ParseID: job.ParseID})
	}

	if len(failed) > 0 {
		return docs, &model.PartialClassificationError{Failed: failed}
	}
	return docs, nil
}
