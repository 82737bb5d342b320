package filings

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
)

// StructuredExtractor starts a structured extraction over the pages a
// classification tagged as risk factors.
type StructuredExtractor struct {
	tl       tensorlake.Client
	pollOpts []tensorlake.PollOption
}

// NewStructuredExtractor creates a StructuredExtractor.
func NewStructuredExtractor(tl tensorlake.Client, pollOpts ...tensorlake.PollOption) *StructuredExtractor {
	return &StructuredExtractor{tl: tl, pollOpts: pollOpts}
}

// Extract waits for doc's classification and submits an extraction job. It
// returns an empty id and no error when no page was tagged.
func (e *StructuredExtractor) Extract(ctx context.Context, doc model.FilingDocument) (string, error) {
	log := zap.L().With(zap.String("url", doc.URL), zap.String("parse_id", doc.ParseID))

	result, err := tensorlake.PollParse(ctx, e.tl, doc.ParseID, e.pollOpts...)
	if err != nil {
		return "", model.NewUpstreamError("tensorlake", "wait for classification", err)
	}

	pages := RiskFactorPages(result.PageClasses)
	if len(pages) == 0 {
		log.Info("filings: no risk factor pages")
		return "", nil
	}

	pageRange := PageRange(pages)
	log.Info("filings: extracting", zap.String("pages", pageRange))

	job, err := e.tl.Extract(ctx, tensorlake.ExtractRequest{
		FileURL:   doc.URL,
		PageRange: pageRange,
		StructuredExtractionOptions: []tensorlake.StructuredExtractionOptions{
			{SchemaName: ExtractionSchemaName, JSONSchema: AIRiskExtractionSchema},
		},
	})
	if err != nil {
		return "", model.NewUpstreamError("tensorlake", "extract", err)
	}
	return job.ParseID, nil
}

// RiskFactorPages returns the sorted, de-duplicated pages tagged with the
// risk factors class.
func RiskFactorPages(classes []tensorlake.PageClass) []int {
	var pages []int
	for _, pc := range classes {
		if pc.PageClass == RiskFactorsClass {
			pages = append(pages, pc.PageNumbers...)
		}
	}
	slices.Sort(pages)
	return slices.Compact(pages)
}

// PageRange renders pages as a comma-separated list, e.g. "1,2,5".
func PageRange(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
