package filings

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/internal/store"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
)

// WriteSummary counts the rows written for one document.
type WriteSummary struct {
	Filings  int
	Mentions int
}

// ResultWriter waits for an extraction and writes its record to the
// filings tables.
type ResultWriter struct {
	tl       tensorlake.Client
	st       store.Store
	pollOpts []tensorlake.PollOption
}

// NewResultWriter creates a ResultWriter.
func NewResultWriter(tl tensorlake.Client, st store.Store, pollOpts ...tensorlake.PollOption) *ResultWriter {
	return &ResultWriter{tl: tl, st: st, pollOpts: pollOpts}
}

// Write inserts one filing row and one mention row per extracted mention.
// It returns model.ErrNoDataExtracted when the extraction produced nothing.
func (w *ResultWriter) Write(ctx context.Context, fileURL, extractionID string) (WriteSummary, error) {
	log := zap.L().With(zap.String("url", fileURL), zap.String("extraction_id", extractionID))

	result, err := tensorlake.PollParse(ctx, w.tl, extractionID, w.pollOpts...)
	if err != nil {
		return WriteSummary{}, model.NewUpstreamError("tensorlake", "wait for extraction", err)
	}
	if len(result.StructuredData) == 0 {
		log.Info("filings: no structured data extracted")
		return WriteSummary{}, model.ErrNoDataExtracted
	}

	rec, err := model.DecodeAIRiskExtraction(result.StructuredData[0].Data)
	if err != nil {
		if errors.Is(err, model.ErrNoDataExtracted) {
			log.Info("filings: structured data is empty")
		}
		return WriteSummary{}, err
	}

	filing, mentions, err := rec.Flatten(model.SourceFile(fileURL))
	if err != nil {
		return WriteSummary{}, err
	}

	for _, m := range mentions {
		if !m.RiskCategory.Valid() {
			log.Warn("filings: mention has unknown risk category",
				zap.String("risk_category", string(m.RiskCategory)),
				zap.String("citation", m.Citation),
			)
		}
	}

	if err := w.st.InsertFiling(ctx, filing); err != nil {
		return WriteSummary{}, eris.Wrapf(err, "filings: insert filing %s", filing.SourceFile)
	}
	summary := WriteSummary{Filings: 1}

	if len(mentions) > 0 {
		n, err := w.st.InsertMentions(ctx, mentions)
		if err != nil {
			return summary, eris.Wrapf(err, "filings: insert mentions %s", filing.SourceFile)
		}
		summary.Mentions = int(n)
	}

	log.Info("filings: wrote filing",
		zap.String("company", filing.CompanyName),
		zap.String("source_file", filing.SourceFile),
		zap.Int("mentions", summary.Mentions),
	)
	return summary, nil
}
