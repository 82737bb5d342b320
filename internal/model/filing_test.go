package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExtraction = `{
	"company_name": "Confluent, Inc.",
	"ticker": "CFLT",
	"filing_type": "10-Q",
	"filing_date": "2025-05-01",
	"fiscal_year": "2025",
	"fiscal_quarter": "Q1",
	"ai_risk_mentioned": true,
	"ai_risk_mentions": [
		{"risk_category": "Regulatory", "risk_description": "New AI rules may restrict features.", "severity_indicator": "High", "citation": "p. 41"},
		{"risk_category": "Operational", "risk_description": "Model outages could disrupt service.", "severity_indicator": null, "citation": "p. 42"}
	],
	"num_ai_risk_mentions": 2,
	"ai_strategy_mentioned": true,
	"ai_investment_mentioned": false,
	"ai_competition_mentioned": true,
	"regulatory_ai_risk": true
}`

func TestDecodeAIRiskExtraction(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantCompany string
		wantErr     error
	}{
		{name: "object", raw: sampleExtraction, wantCompany: "Confluent, Inc."},
		{name: "list takes first", raw: `[` + sampleExtraction + `, {"company_name": "Other"}]`, wantCompany: "Confluent, Inc."},
		{name: "empty list", raw: `[]`, wantErr: ErrNoDataExtracted},
		{name: "null", raw: `null`, wantErr: ErrNoDataExtracted},
		{name: "blank", raw: ``, wantErr: ErrNoDataExtracted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeAIRiskExtraction(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCompany, rec.CompanyName)
		})
	}
}

func TestDecodeAIRiskExtraction_Malformed(t *testing.T) {
	_, err := DecodeAIRiskExtraction(json.RawMessage(`{"company_name": 12`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode extraction")
}

func TestFlatten_CopiesParentKeysOntoMentions(t *testing.T) {
	rec, err := DecodeAIRiskExtraction(json.RawMessage(sampleExtraction))
	require.NoError(t, err)

	parent, mentions, err := rec.Flatten("10q-2025.pdf")
	require.NoError(t, err)

	assert.Equal(t, "10q-2025.pdf", parent.SourceFile)
	assert.Equal(t, 2, parent.NumAIRiskMentions)
	assert.True(t, parent.RegulatoryAIRisk)

	var detached []AIRiskMention
	require.NoError(t, json.Unmarshal([]byte(parent.AIRiskMentionsJSON), &detached))
	assert.Len(t, detached, 2)

	require.Len(t, mentions, 2)
	for _, m := range mentions {
		assert.Equal(t, "Confluent, Inc.", m.CompanyName)
		assert.Equal(t, "CFLT", m.Ticker)
		assert.Equal(t, "2025", m.FiscalYear)
		require.NotNil(t, m.FiscalQuarter)
		assert.Equal(t, "Q1", *m.FiscalQuarter)
		assert.Equal(t, "10q-2025.pdf", m.SourceFile)
	}
	assert.Equal(t, RiskCategoryRegulatory, mentions[0].RiskCategory)
	require.NotNil(t, mentions[0].SeverityIndicator)
	assert.Nil(t, mentions[1].SeverityIndicator)
}

func TestFlatten_NoMentions(t *testing.T) {
	rec := AIRiskExtraction{CompanyName: "Acme", Ticker: "ACME", FiscalYear: "2024"}

	parent, mentions, err := rec.Flatten("acme.pdf")
	require.NoError(t, err)
	assert.Empty(t, mentions)
	assert.Equal(t, "[]", parent.AIRiskMentionsJSON)
	assert.Nil(t, parent.FiscalQuarter)
}

func TestRiskCategoryValid(t *testing.T) {
	for _, c := range AllRiskCategories() {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, RiskCategory("Financial").Valid())
	assert.Len(t, AllRiskCategories(), 6)
}

func TestParseRiskCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   RiskCategory
		wantOK bool
	}{
		{in: "Operational", want: RiskCategoryOperational, wantOK: true},
		{in: "operational", want: RiskCategoryOperational, wantOK: true},
		{in: "  SECURITY ", want: RiskCategorySecurity, wantOK: true},
		{in: "Financial", want: "Financial", wantOK: false},
		{in: " ", want: "", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := ParseRiskCategory(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestFlatten_CanonicalizesCategories(t *testing.T) {
	rec := AIRiskExtraction{
		CompanyName: "Acme",
		AIRiskMentions: []AIRiskMention{
			{RiskCategory: "operational", RiskDescription: "outage"},
			{RiskCategory: "Financial", RiskDescription: "margin"},
		},
	}

	parent, mentions, err := rec.Flatten("acme.pdf")
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, RiskCategoryOperational, mentions[0].RiskCategory)
	assert.Equal(t, RiskCategory("Financial"), mentions[1].RiskCategory)
	assert.False(t, mentions[1].RiskCategory.Valid())
	assert.Contains(t, parent.AIRiskMentionsJSON, `"risk_category":"Operational"`)

	// Record itself is untouched.
	assert.Equal(t, RiskCategory("operational"), rec.AIRiskMentions[0].RiskCategory)
}

func TestSourceFile(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://investors.confluent.io/static-files/95299e90-a988-42c5-b9b5-7da387691f6a", "95299e90-a988-42c5-b9b5-7da387691f6a"},
		{"https://example.com/filings/10k.pdf?download=1", "10k.pdf"},
		{"https://example.com/filings/", "filings"},
		{"local.pdf", "local.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceFile(tt.in), tt.in)
	}
}

func TestIngestReportCount(t *testing.T) {
	r := IngestReport{Outcomes: []DocumentOutcome{
		{Status: OutcomeWritten},
		{Status: OutcomeSkipped},
		{Status: OutcomeWritten},
		{Status: OutcomeFailed},
	}}
	assert.Equal(t, 2, r.Count(OutcomeWritten))
	assert.Equal(t, 1, r.Count(OutcomeSkipped))
	assert.Equal(t, 0, r.Count(OutcomeUnclassified))
}
