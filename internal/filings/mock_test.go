package filings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-rag/internal/store"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
)

type mockTensorlakeClient struct {
	mock.Mock
}

func (m *mockTensorlakeClient) UploadFile(ctx context.Context, name string, content []byte) (*tensorlake.UploadResponse, error) {
	args := m.Called(ctx, name, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tensorlake.UploadResponse), args.Error(1)
}

func (m *mockTensorlakeClient) Parse(ctx context.Context, req tensorlake.ParseRequest) (*tensorlake.JobResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tensorlake.JobResponse), args.Error(1)
}

func (m *mockTensorlakeClient) Classify(ctx context.Context, req tensorlake.ClassifyRequest) (*tensorlake.JobResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tensorlake.JobResponse), args.Error(1)
}

func (m *mockTensorlakeClient) Extract(ctx context.Context, req tensorlake.ExtractRequest) (*tensorlake.JobResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tensorlake.JobResponse), args.Error(1)
}

func (m *mockTensorlakeClient) GetParseResult(ctx context.Context, parseID string) (*tensorlake.ParseResult, error) {
	args := m.Called(ctx, parseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tensorlake.ParseResult), args.Error(1)
}

func fastPoll() []tensorlake.PollOption {
	return []tensorlake.PollOption{
		tensorlake.WithPollInterval(time.Millisecond),
		tensorlake.WithPollCap(time.Millisecond),
		tensorlake.WithPollTimeout(time.Second),
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureFilingTables(context.Background()))
	return s
}

func classified(parseID string, pages ...int) *tensorlake.ParseResult {
	return &tensorlake.ParseResult{
		ParseID:     parseID,
		Status:      tensorlake.StatusSuccessful,
		PageClasses: []tensorlake.PageClass{{PageClass: RiskFactorsClass, PageNumbers: pages}},
	}
}

func extracted(parseID string, data string) *tensorlake.ParseResult {
	return &tensorlake.ParseResult{
		ParseID:        parseID,
		Status:         tensorlake.StatusSuccessful,
		StructuredData: []tensorlake.StructuredData{{SchemaName: ExtractionSchemaName, Data: json.RawMessage(data)}},
	}
}

const acmeRecord = `{
  "company_name": "Acme Corp",
  "ticker": "ACME",
  "filing_type": "10-Q",
  "filing_date": "2025-05-01",
  "fiscal_year": "2025",
  "fiscal_quarter": "Q1",
  "ai_risk_mentioned": true,
  "ai_risk_mentions": [
    {"risk_category": "Operational", "risk_description": "Model outages could disrupt service.", "severity_indicator": "high", "citation": "p. 12"},
    {"risk_category": "Regulatory", "risk_description": "New AI rules may raise costs.", "severity_indicator": null, "citation": "p. 14"}
  ],
  "num_ai_risk_mentions": 2,
  "ai_strategy_mentioned": true,
  "ai_investment_mentioned": false,
  "ai_competition_mentioned": true,
  "regulatory_ai_risk": true
}`
