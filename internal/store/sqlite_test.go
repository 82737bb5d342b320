package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/warehouse-rag/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.EnsureChunkTable(ctx))
	require.NoError(t, s.EnsureFilingTables(ctx))
	return s
}

func loadPhotosynthesis(t *testing.T, s *SQLiteStore) {
	t.Helper()
	chunks := model.NewArticleChunks("Photosynthesis", []string{
		"Photosynthesis is the process plants use to convert light energy into chemical energy.",
		"Chlorophyll absorbs mostly blue and red light.",
		"The Calvin cycle fixes carbon dioxide into sugar.",
	})
	require.NoError(t, s.ReplaceChunks(context.Background(), "Photosynthesis", chunks))
}

func countChunks(t *testing.T, s *SQLiteStore) int64 {
	t.Helper()
	rs, err := s.Query(context.Background(), "SELECT count(*) AS n FROM wikipedia_chunks")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	return rs.Rows[0][0].(int64)
}

func TestSQLite_EnsureTablesIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureChunkTable(ctx))
	require.NoError(t, s.EnsureFilingTables(ctx))
	require.NoError(t, s.Ping(ctx))
}

func TestSQLite_ReplaceChunksOverwrites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	loadPhotosynthesis(t, s)
	assert.Equal(t, int64(3), countChunks(t, s))

	// Re-ingesting the same title replaces its chunk set.
	require.NoError(t, s.ReplaceChunks(ctx, "Photosynthesis",
		model.NewArticleChunks("Photosynthesis", []string{"Only one chunk now."})))
	assert.Equal(t, int64(1), countChunks(t, s))

	// Other titles are untouched.
	require.NoError(t, s.ReplaceChunks(ctx, "Chlorophyll",
		model.NewArticleChunks("Chlorophyll", []string{"A green pigment."})))
	assert.Equal(t, int64(2), countChunks(t, s))
}

func TestSQLite_SearchIndex_UnavailableBeforeRebuild(t *testing.T) {
	s := newTestSQLiteStore(t)
	loadPhotosynthesis(t, s)

	_, err := s.SearchIndex(context.Background(), "chlorophyll", 5)
	assert.ErrorIs(t, err, model.ErrSearchUnavailable)
}

func TestSQLite_SearchIndex(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	loadPhotosynthesis(t, s)
	require.NoError(t, s.RebuildSearchIndex(ctx))

	got, err := s.SearchIndex(ctx, "What does chlorophyll absorb?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Text, "Chlorophyll")
	assert.Equal(t, "Photosynthesis", got[0].Title)

	// Rebuilding again is safe and reflects replaced content.
	require.NoError(t, s.ReplaceChunks(ctx, "Photosynthesis",
		model.NewArticleChunks("Photosynthesis", []string{"Stomata regulate gas exchange."})))
	require.NoError(t, s.RebuildSearchIndex(ctx))

	got, err = s.SearchIndex(ctx, "chlorophyll", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.SearchIndex(ctx, "stomata", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSQLite_RebuildSearchIndex_Concurrent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	loadPhotosynthesis(t, s)

	g, gctx := errgroup.WithContext(ctx)
	for range 8 {
		g.Go(func() error { return s.RebuildSearchIndex(gctx) })
	}
	require.NoError(t, g.Wait())

	got, err := s.SearchIndex(ctx, "chlorophyll", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestSQLite_SearchIndex_NoWords(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	loadPhotosynthesis(t, s)
	require.NoError(t, s.RebuildSearchIndex(ctx))

	got, err := s.SearchIndex(ctx, "?!", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_SearchSimilarityUnavailable(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.SearchSimilarity(context.Background(), "plants", 0.5, 5)
	assert.ErrorIs(t, err, model.ErrSearchUnavailable)
}

func TestSQLite_SearchSubstring(t *testing.T) {
	s := newTestSQLiteStore(t)
	loadPhotosynthesis(t, s)

	got, err := s.SearchSubstring(context.Background(), "CALVIN CYCLE", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "Calvin cycle")

	got, err = s.SearchSubstring(context.Background(), "mitochondria", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_SampleChunks(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	got, err := s.SampleChunks(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	loadPhotosynthesis(t, s)
	got, err = s.SampleChunks(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_FilingsRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	high := "high"
	q3 := "Q3"
	ext := model.AIRiskExtraction{
		CompanyName:     "Acme Corp",
		Ticker:          "ACME",
		FilingType:      "10-Q",
		FiscalYear:      "2025",
		FiscalQuarter:   &q3,
		AIRiskMentioned: true,
		AIRiskMentions: []model.AIRiskMention{
			{RiskCategory: model.RiskCategoryOperational, RiskDescription: "Model failures", SeverityIndicator: &high, Citation: "p. 12"},
			{RiskCategory: model.RiskCategoryRegulatory, RiskDescription: "EU AI Act", Citation: "p. 14"},
		},
		NumAIRiskMentions: 2,
		RegulatoryAIRisk:  true,
	}
	parent, children, err := ext.Flatten("acme-10q.pdf")
	require.NoError(t, err)

	require.NoError(t, s.InsertFiling(ctx, parent))
	n, err := s.InsertMentions(ctx, children)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rs, err := s.Query(ctx, `
		SELECT risk_category, count(*) AS total_mentions
		FROM ai_risk_mentions
		WHERE risk_category IS NOT NULL
		GROUP BY risk_category
		ORDER BY risk_category`)
	require.NoError(t, err)
	assert.Equal(t, []string{"RISK_CATEGORY", "TOTAL_MENTIONS"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "Operational", rs.Rows[0][0])

	rs, err = s.Query(ctx, `
		SELECT source_file, fiscal_quarter,
			SUM(CASE WHEN regulatory_ai_risk THEN 1 ELSE 0 END) AS regulatory
		FROM ai_risk_filings GROUP BY source_file, fiscal_quarter`)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "acme-10q.pdf", rs.Rows[0][0])
	assert.Equal(t, "Q3", rs.Rows[0][1])
	assert.Equal(t, int64(1), rs.Rows[0][2])
}

func TestSQLite_InsertMentionsEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	n, err := s.InsertMentions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_QueryError(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Query(context.Background(), "SELECT * FROM no_such_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: query")
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "photosynthesis", want: `"photosynthesis"`},
		{in: "How do plants make food?", want: `"How" OR "do" OR "plants" OR "make" OR "food"`},
		{in: `NEAR("a" b) AND -c`, want: `"NEAR" OR "a" OR "b" OR "AND" OR "c"`},
		{in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ftsQuery(tt.in))
		})
	}
}
