package filings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/pkg/tensorlake"
)

func TestRiskFactorPages(t *testing.T) {
	tests := []struct {
		name    string
		classes []tensorlake.PageClass
		want    []int
	}{
		{name: "none", classes: nil, want: nil},
		{name: "other class only", classes: []tensorlake.PageClass{{PageClass: "financials", PageNumbers: []int{3}}}, want: nil},
		{
			name: "union sorted deduped",
			classes: []tensorlake.PageClass{
				{PageClass: "risk_factors", PageNumbers: []int{5, 2}},
				{PageClass: "financials", PageNumbers: []int{9}},
				{PageClass: "risk_factors", PageNumbers: []int{1, 2}},
			},
			want: []int{1, 2, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskFactorPages(tt.classes)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, "1,2,5", PageRange([]int{1, 2, 5}))
	assert.Equal(t, "7", PageRange([]int{7}))
	assert.Equal(t, "", PageRange(nil))
}

func TestExtract(t *testing.T) {
	tl := new(mockTensorlakeClient)
	tl.On("GetParseResult", mock.Anything, "p_a").Return(classified("p_a", 5, 1, 2), nil)
	tl.On("Extract", mock.Anything, tensorlake.ExtractRequest{
		FileURL:   "https://x/a.pdf",
		PageRange: "1,2,5",
		StructuredExtractionOptions: []tensorlake.StructuredExtractionOptions{
			{SchemaName: "AIRiskExtraction", JSONSchema: AIRiskExtractionSchema},
		},
	}).Return(&tensorlake.JobResponse{ParseID: "x_a"}, nil)

	id, err := NewStructuredExtractor(tl, fastPoll()...).Extract(context.Background(),
		model.FilingDocument{URL: "https://x/a.pdf", ParseID: "p_a"})
	require.NoError(t, err)
	assert.Equal(t, "x_a", id)
	tl.AssertExpectations(t)
}

func TestExtract_NoPages(t *testing.T) {
	tl := new(mockTensorlakeClient)
	tl.On("GetParseResult", mock.Anything, "p_a").Return(classified("p_a"), nil)

	id, err := NewStructuredExtractor(tl, fastPoll()...).Extract(context.Background(),
		model.FilingDocument{URL: "https://x/a.pdf", ParseID: "p_a"})
	require.NoError(t, err)
	assert.Empty(t, id)
	tl.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestExtract_Errors(t *testing.T) {
	t.Run("classification failed", func(t *testing.T) {
		tl := new(mockTensorlakeClient)
		tl.On("GetParseResult", mock.Anything, "p_a").
			Return(&tensorlake.ParseResult{Status: tensorlake.StatusFailure, Error: "corrupt pdf"}, nil)

		_, err := NewStructuredExtractor(tl, fastPoll()...).Extract(context.Background(),
			model.FilingDocument{URL: "https://x/a.pdf", ParseID: "p_a"})
		require.Error(t, err)
		assert.True(t, model.IsUpstream(err))
	})

	t.Run("extract request failed", func(t *testing.T) {
		tl := new(mockTensorlakeClient)
		tl.On("GetParseResult", mock.Anything, "p_a").Return(classified("p_a", 3), nil)
		tl.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("500"))

		_, err := NewStructuredExtractor(tl, fastPoll()...).Extract(context.Background(),
			model.FilingDocument{URL: "https://x/a.pdf", ParseID: "p_a"})
		require.Error(t, err)
		assert.True(t, model.IsUpstream(err))
	})
}
