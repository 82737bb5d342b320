package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-rag/internal/answer"
	"github.com/sells-group/warehouse-rag/internal/filings"
	"github.com/sells-group/warehouse-rag/internal/model"
)

type mockAnswerer struct {
	mock.Mock
}

func (m *mockAnswerer) Run(ctx context.Context, query string) (*answer.Report, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*answer.Report), args.Error(1)
}

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) Run(ctx context.Context, urls []string) (*model.IngestReport, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IngestReport), args.Error(1)
}

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) RunQuery(ctx context.Context, name filings.QueryName) (*model.ResultSet, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResultSet), args.Error(1)
}

type testServer struct {
	*Server
	answerer *mockAnswerer
	ingester *mockIngester
	querier  *mockQuerier
}

func newTestServer() *testServer {
	ts := &testServer{
		answerer: new(mockAnswerer),
		ingester: new(mockIngester),
		querier:  new(mockQuerier),
	}
	ts.Server = New(Config{Answerer: ts.answerer, Ingester: ts.ingester, Querier: ts.querier})
	return ts
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnswer(t *testing.T) {
	ts := newTestServer()
	ts.answerer.On("Run", mock.Anything, "Why is the sky blue?").Return(&answer.Report{
		Query:  "Why is the sky blue?",
		Topic:  "Rayleigh scattering",
		Tier:   model.SearchTierIndex,
		Answer: "Scattering.",
	}, nil)

	rec := do(t, ts, http.MethodPost, "/v1/answer", `{"query":"Why is the sky blue?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got answer.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Rayleigh scattering", got.Topic)
	assert.Equal(t, "Scattering.", got.Answer)
}

func TestAnswer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest},
		{name: "empty query", body: `{"query":"  "}`, wantCode: http.StatusBadRequest},
		{name: "not found", body: `{"query":"q"}`, err: &model.ArticleNotFoundError{Title: "X"}, wantCode: http.StatusNotFound},
		{name: "upstream", body: `{"query":"q"}`, err: model.NewUpstreamError("llm", "resolve topic", errors.New("x")), wantCode: http.StatusBadGateway},
		{name: "other", body: `{"query":"q"}`, err: errors.New("disk full"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			if tt.err != nil {
				ts.answerer.On("Run", mock.Anything, "q").Return(nil, tt.err)
			}
			rec := do(t, ts, http.MethodPost, "/v1/answer", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestIngest_Accepted(t *testing.T) {
	ts := newTestServer()
	urls := []string{"https://x/a.pdf", "https://x/b.pdf"}
	ts.ingester.On("Run", mock.Anything, urls).Return(&model.IngestReport{RunID: "r1"}, nil)

	rec := do(t, ts, http.MethodPost, "/v1/filings/ingest", `{"urls":["https://x/a.pdf","https://x/b.pdf"]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted","documents":2}`, rec.Body.String())

	ts.Wait()
	ts.ingester.AssertExpectations(t)
}

func TestIngest_Validation(t *testing.T) {
	ts := newTestServer()
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/v1/filings/ingest", `{"urls":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/v1/filings/ingest", `nope`).Code)
	ts.ingester.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestIngest_BackgroundErrorLogged(t *testing.T) {
	ts := newTestServer()
	ts.ingester.On("Run", mock.Anything, []string{"https://x/a.pdf"}).Return(nil, errors.New("tables"))

	rec := do(t, ts, http.MethodPost, "/v1/filings/ingest", `{"urls":["https://x/a.pdf"]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	ts.Wait()
	ts.ingester.AssertExpectations(t)
}

func TestListQueries(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodGet, "/v1/filings/queries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queries":["risk-distribution","operational-risks","risk-evolution","risk-timeline","risk-profiles","company-summary"]}`,
		rec.Body.String())
}

func TestQuery(t *testing.T) {
	ts := newTestServer()
	rs := model.NewResultSet([]string{"risk_category", "total_mentions"})
	rs.Append([]any{"Operational", int64(3)})
	ts.querier.On("RunQuery", mock.Anything, filings.RiskTimeline).Return(rs, nil)

	rec := do(t, ts, http.MethodGet, "/v1/filings/queries/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"RISK_CATEGORY":{"0":"Operational"},"TOTAL_MENTIONS":{"0":3}}`, rec.Body.String())
}

func TestQuery_RecordsFormat(t *testing.T) {
	ts := newTestServer()
	rs := model.NewResultSet([]string{"risk_category", "total_mentions"})
	rs.Append([]any{"Operational", int64(3)})
	rs.Append([]any{"Security", int64(1)})
	ts.querier.On("RunQuery", mock.Anything, filings.RiskDistribution).Return(rs, nil)

	rec := do(t, ts, http.MethodGet, "/v1/filings/queries/risk-distribution?format=records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"RISK_CATEGORY":"Operational","TOTAL_MENTIONS":3},{"RISK_CATEGORY":"Security","TOTAL_MENTIONS":1}]`,
		rec.Body.String())

	rec = do(t, ts, http.MethodGet, "/v1/filings/queries/risk-distribution?format=csv", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_Errors(t *testing.T) {
	ts := newTestServer()
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/v1/filings/queries/heatmap", "").Code)

	ts.querier.On("RunQuery", mock.Anything, filings.CompanySummary).Return(nil, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, do(t, ts, http.MethodGet, "/v1/filings/queries/company-summary", "").Code)
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/answer", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
