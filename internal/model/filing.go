package model

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// RiskCategory is the closed set of AI risk categories an extraction may tag.
type RiskCategory string

const (
	RiskCategoryOperational RiskCategory = "Operational"
	RiskCategoryRegulatory  RiskCategory = "Regulatory"
	RiskCategoryCompetitive RiskCategory = "Competitive"
	RiskCategoryEthical     RiskCategory = "Ethical"
	RiskCategorySecurity    RiskCategory = "Security"
	RiskCategoryLiability   RiskCategory = "Liability"
)

// AllRiskCategories returns every defined risk category in schema order.
func AllRiskCategories() []RiskCategory {
	return []RiskCategory{
		RiskCategoryOperational,
		RiskCategoryRegulatory,
		RiskCategoryCompetitive,
		RiskCategoryEthical,
		RiskCategorySecurity,
		RiskCategoryLiability,
	}
}

// Valid reports whether c is one of the defined categories.
func (c RiskCategory) Valid() bool {
	for _, known := range AllRiskCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseRiskCategory maps s to its canonical category, ignoring case and
// surrounding space. Unknown values are returned trimmed with ok false.
func ParseRiskCategory(s string) (RiskCategory, bool) {
	s = strings.TrimSpace(s)
	for _, known := range AllRiskCategories() {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return RiskCategory(s), false
}

// AIRiskMention is a single AI-related risk called out in a filing.
type AIRiskMention struct {
	RiskCategory      RiskCategory `json:"risk_category"`
	RiskDescription   string       `json:"risk_description"`
	SeverityIndicator *string      `json:"severity_indicator"`
	Citation          string       `json:"citation"`
}

// AIRiskExtraction is the structured record extracted from one filing.
type AIRiskExtraction struct {
	CompanyName            string          `json:"company_name"`
	Ticker                 string          `json:"ticker"`
	FilingType             string          `json:"filing_type"`
	FilingDate             string          `json:"filing_date"`
	FiscalYear             string          `json:"fiscal_year"`
	FiscalQuarter          *string         `json:"fiscal_quarter"`
	AIRiskMentioned        bool            `json:"ai_risk_mentioned"`
	AIRiskMentions         []AIRiskMention `json:"ai_risk_mentions"`
	NumAIRiskMentions      int             `json:"num_ai_risk_mentions"`
	AIStrategyMentioned    bool            `json:"ai_strategy_mentioned"`
	AIInvestmentMentioned  bool            `json:"ai_investment_mentioned"`
	AICompetitionMentioned bool            `json:"ai_competition_mentioned"`
	RegulatoryAIRisk       bool            `json:"regulatory_ai_risk"`
}

// DecodeAIRiskExtraction decodes the structured data returned for one
// extraction. The service returns either a single object or a list of
// objects; only the first record is used.
func DecodeAIRiskExtraction(raw json.RawMessage) (*AIRiskExtraction, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoDataExtracted
	}

	if trimmed[0] == '[' {
		var records []AIRiskExtraction
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, eris.Wrap(err, "model: decode extraction list")
		}
		if len(records) == 0 {
			return nil, ErrNoDataExtracted
		}
		return &records[0], nil
	}

	var rec AIRiskExtraction
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, eris.Wrap(err, "model: decode extraction")
	}
	return &rec, nil
}

// FilingDocument is a filing submitted for classification.
type FilingDocument struct {
	URL     string `json:"url"`
	ParseID string `json:"parse_id"`
}

// FilingRow is one row of the filings table.
type FilingRow struct {
	CompanyName            string
	Ticker                 string
	FilingType             string
	FilingDate             string
	FiscalYear             string
	FiscalQuarter          *string
	SourceFile             string
	AIRiskMentioned        bool
	NumAIRiskMentions      int
	AIStrategyMentioned    bool
	AIInvestmentMentioned  bool
	AICompetitionMentioned bool
	RegulatoryAIRisk       bool
	AIRiskMentionsJSON     string
}

// MentionRow is one row of the mentions table. The parent's identity columns
// are copied onto every row so the table can be queried without a join.
type MentionRow struct {
	CompanyName       string
	Ticker            string
	FiscalYear        string
	FiscalQuarter     *string
	SourceFile        string
	RiskCategory      RiskCategory
	RiskDescription   string
	SeverityIndicator *string
	Citation          string
}

// Flatten detaches the mention list from the record and returns the parent
// row (with the mentions serialized as JSON) and one child row per mention.
// Risk categories are canonicalized; values outside the defined set are kept
// as given and can be found with RiskCategory.Valid.
func (e AIRiskExtraction) Flatten(sourceFile string) (FilingRow, []MentionRow, error) {
	mentions := make([]AIRiskMention, len(e.AIRiskMentions))
	for i, m := range e.AIRiskMentions {
		m.RiskCategory, _ = ParseRiskCategory(string(m.RiskCategory))
		mentions[i] = m
	}
	mentionsJSON, err := json.Marshal(mentions)
	if err != nil {
		return FilingRow{}, nil, eris.Wrap(err, "model: marshal mentions")
	}

	parent := FilingRow{
		CompanyName:            e.CompanyName,
		Ticker:                 e.Ticker,
		FilingType:             e.FilingType,
		FilingDate:             e.FilingDate,
		FiscalYear:             e.FiscalYear,
		FiscalQuarter:          e.FiscalQuarter,
		SourceFile:             sourceFile,
		AIRiskMentioned:        e.AIRiskMentioned,
		NumAIRiskMentions:      e.NumAIRiskMentions,
		AIStrategyMentioned:    e.AIStrategyMentioned,
		AIInvestmentMentioned:  e.AIInvestmentMentioned,
		AICompetitionMentioned: e.AICompetitionMentioned,
		RegulatoryAIRisk:       e.RegulatoryAIRisk,
		AIRiskMentionsJSON:     string(mentionsJSON),
	}

	children := make([]MentionRow, len(mentions))
	for i, m := range mentions {
		children[i] = MentionRow{
			CompanyName:       e.CompanyName,
			Ticker:            e.Ticker,
			FiscalYear:        e.FiscalYear,
			FiscalQuarter:     e.FiscalQuarter,
			SourceFile:        sourceFile,
			RiskCategory:      m.RiskCategory,
			RiskDescription:   m.RiskDescription,
			SeverityIndicator: m.SeverityIndicator,
			Citation:          m.Citation,
		}
	}
	return parent, children, nil
}

// SourceFile returns the base name of the document URL's path, which is how
// filings are identified in the warehouse.
func SourceFile(fileURL string) string {
	p := fileURL
	if u, err := url.Parse(fileURL); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return fileURL
	}
	return path.Base(p)
}

// OutcomeStatus tags the result of processing one filing document.
type OutcomeStatus string

const (
	OutcomeWritten      OutcomeStatus = "written"
	OutcomeSkipped      OutcomeStatus = "skipped"
	OutcomeFailed       OutcomeStatus = "failed"
	OutcomeUnclassified OutcomeStatus = "unclassified"
)

// DocumentOutcome reports what happened to one document in an ingestion run.
type DocumentOutcome struct {
	URL          string        `json:"url"`
	Status       OutcomeStatus `json:"status"`
	ParseID      string        `json:"parse_id,omitempty"`
	ExtractionID string        `json:"extraction_id,omitempty"`
	Filings      int           `json:"filings"`
	Mentions     int           `json:"mentions"`
	Reason       string        `json:"reason,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// IngestReport is the aggregate result of an ingestion run, with outcomes in
// input order.
type IngestReport struct {
	RunID    string            `json:"run_id"`
	Outcomes []DocumentOutcome `json:"outcomes"`
}

// Count returns how many outcomes have the given status.
func (r IngestReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
