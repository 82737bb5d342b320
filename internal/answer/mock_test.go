package answer

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/warehouse-rag/internal/llm"
	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/internal/store"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
	"github.com/sells-group/warehouse-rag/pkg/wikipedia"
)

// --- LLM Mock ---

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

// --- Wikipedia Mock ---

type mockWikiClient struct {
	mock.Mock
}

func (m *mockWikiClient) GetPage(ctx context.Context, title string) (*wikipedia.Page, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wikipedia.Page), args.Error(1)
}

// --- Tensorlake Mock ---

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

// --- Store Stub ---

var errUnavailable = errors.New("unavailable")

// stubStore overrides the retrieval methods; anything else panics through
// the nil embedded Store.
type stubStore struct {
	store.Store
	index      func() ([]model.RetrievedChunk, error)
	similarity func() ([]model.RetrievedChunk, error)
	substring  func() ([]model.RetrievedChunk, error)
	sample     func(limit int) ([]model.RetrievedChunk, error)
	calls      []string
}

func (s *stubStore) SearchIndex(context.Context, string, int) ([]model.RetrievedChunk, error) {
	s.calls = append(s.calls, "index")
	return s.index()
}

func (s *stubStore) SearchSimilarity(context.Context, string, float64, int) ([]model.RetrievedChunk, error) {
	s.calls = append(s.calls, "similarity")
	return s.similarity()
}

func (s *stubStore) SearchSubstring(context.Context, string, int) ([]model.RetrievedChunk, error) {
	s.calls = append(s.calls, "substring")
	return s.substring()
}

func (s *stubStore) SampleChunks(_ context.Context, limit int) ([]model.RetrievedChunk, error) {
	s.calls = append(s.calls, "sample")
	return s.sample(limit)
}

func fails() ([]model.RetrievedChunk, error) { return nil, errUnavailable }

func empty() ([]model.RetrievedChunk, error) { return nil, nil }

func returns(chunks ...model.RetrievedChunk) func() ([]model.RetrievedChunk, error) {
	return func() ([]model.RetrievedChunk, error) { return chunks, nil }
}
