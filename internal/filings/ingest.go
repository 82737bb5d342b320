package filings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/internal/store"
)

const (
	defaultMaxConcurrent = 4
	defaultTaskTimeout   = 15 * time.Minute
)

// IngestOptions bounds the per-document fan-out.
type IngestOptions struct {
	MaxConcurrent int
	TaskTimeout   time.Duration
}

// Ingestor runs filing ingestion end to end.
type Ingestor struct {
	st         store.Store
	classifier *PageClassifier
	extractor  *StructuredExtractor
	writer     *ResultWriter
	opts       IngestOptions
}

// NewIngestor creates an Ingestor.
func NewIngestor(st store.Store, classifier *PageClassifier, extractor *StructuredExtractor, writer *ResultWriter, opts IngestOptions) *Ingestor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	return &Ingestor{st: st, classifier: classifier, extractor: extractor, writer: writer, opts: opts}
}

// Run ingests urls. Only table initialization failure is returned as an
// error; every other problem is recorded on that document's outcome.
func (in *Ingestor) Run(ctx context.Context, urls []string) (*model.IngestReport, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.Int("documents", len(urls)))

	if err := in.st.EnsureFilingTables(ctx); err != nil {
		return nil, eris.Wrap(err, "filings: initialize tables")
	}

	report := &model.IngestReport{RunID: runID, Outcomes: make([]model.DocumentOutcome, len(urls))}
	for i, u := range urls {
		report.Outcomes[i] = model.DocumentOutcome{URL: u, Status: model.OutcomeUnclassified}
	}

	docs, err := in.classifier.Classify(ctx, urls)
	var partial *model.PartialClassificationError
	if errors.As(err, &partial) {
		for i, u := range urls {
			if cerr, ok := partial.Failed[u]; ok {
				report.Outcomes[i].Error = cerr.Error()
			}
		}
		log.Warn("filings: some documents failed classification", zap.Int("failed", len(partial.Failed)))
	} else if err != nil {
		log.Error("filings: classification failed", zap.Error(err))
	}

	// Map each classified document back to the first unfilled slot for its
	// URL so duplicate URLs keep their own outcome.
	slots := make(map[string][]int, len(urls))
	for i, u := range urls {
		slots[u] = append(slots[u], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.MaxConcurrent)

	for _, doc := range docs {
		idx := slots[doc.URL]
		if len(idx) == 0 {
			continue
		}
		i := idx[0]
		slots[doc.URL] = idx[1:]

		g.Go(func() error {
			report.Outcomes[i] = in.process(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("filings: run complete",
		zap.Int("written", report.Count(model.OutcomeWritten)),
		zap.Int("skipped", report.Count(model.OutcomeSkipped)),
		zap.Int("failed", report.Count(model.OutcomeFailed)),
		zap.Int("unclassified", report.Count(model.OutcomeUnclassified)),
	)
	return report, nil
}

// process extracts and writes one document under its own timeout.
func (in *Ingestor) process(ctx context.Context, doc model.FilingDocument) model.DocumentOutcome {
	ctx, cancel := context.WithTimeout(ctx, in.opts.TaskTimeout)
	defer cancel()

	out := model.DocumentOutcome{URL: doc.URL, ParseID: doc.ParseID}
	log := zap.L().With(zap.String("url", doc.URL), zap.String("parse_id", doc.ParseID))

	extractionID, err := in.extractor.Extract(ctx, doc)
	if err != nil {
		log.Error("filings: extraction failed", zap.Error(err))
		out.Status = model.OutcomeFailed
		out.Error = err.Error()
		return out
	}
	if extractionID == "" {
		out.Status = model.OutcomeSkipped
		out.Reason = "no risk factor pages"
		return out
	}
	out.ExtractionID = extractionID

	summary, err := in.writer.Write(ctx, doc.URL, extractionID)
	out.Filings = summary.Filings
	out.Mentions = summary.Mentions
	switch {
	case errors.Is(err, model.ErrNoDataExtracted):
		out.Status = model.OutcomeSkipped
		out.Reason = err.Error()
	case err != nil:
		log.Error("filings: write failed", zap.Error(err))
		out.Status = model.OutcomeFailed
		out.Error = err.Error()
	default:
		out.Status = model.OutcomeWritten
	}
	return out
}
