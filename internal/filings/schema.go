// Package filings implements filing risk extraction: classify filing pages,
// extract a structured AI-risk record from the relevant pages, write it to
// the warehouse, and run the fixed analytical queries over the result.
package filings

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/warehouse-rag/internal/model"
)

const (
	// RiskFactorsClass is the page class requested from the classifier.
	RiskFactorsClass = "risk_factors"

	riskFactorsDescription = "Pages that contain risk factors related to AI."

	// ExtractionSchemaName names the structured extraction schema.
	ExtractionSchemaName = "AIRiskExtraction"
)

// AIRiskExtractionSchema is the JSON schema of model.AIRiskExtraction sent
// to the extraction service.
var AIRiskExtractionSchema = json.RawMessage(strings.Replace(schemaTemplate, `"$RISK_CATEGORIES"`, riskCategoryEnum(), 1))

func riskCategoryEnum() string {
	b, err := json.Marshal(model.AllRiskCategories())
	if err != nil {
		panic(err)
	}
	return string(b)
}

const schemaTemplate = `{
  "title": "AIRiskExtraction",
  "description": "Complete AI risk data from a filing",
  "type": "object",
  "properties": {
    "company_name": {"title": "Company Name", "type": "string"},
    "ticker": {"title": "Ticker", "type": "string"},
    "filing_type": {"title": "Filing Type", "type": "string"},
    "filing_date": {"title": "Filing Date", "type": "string"},
    "fiscal_year": {"title": "Fiscal Year", "type": "string"},
    "fiscal_quarter": {"title": "Fiscal Quarter", "anyOf": [{"type": "string"}, {"type": "null"}], "default": null},
    "ai_risk_mentioned": {"title": "Ai Risk Mentioned", "type": "boolean"},
    "ai_risk_mentions": {
      "title": "Ai Risk Mentions",
      "type": "array",
      "default": [],
      "items": {
        "title": "AIRiskMention",
        "description": "Individual AI-related risk mention",
        "type": "object",
        "properties": {
          "risk_category": {
            "title": "Risk Category",
            "description": "Category: Operational, Regulatory, Competitive, Ethical, Security, Liability",
            "type": "string",
            "enum": "$RISK_CATEGORIES"
          },
          "risk_description": {"title": "Risk Description", "description": "Description of the AI risk", "type": "string"},
          "severity_indicator": {
            "title": "Severity Indicator",
            "description": "Severity level if mentioned",
            "anyOf": [{"type": "string"}, {"type": "null"}],
            "default": null
          },
          "citation": {"title": "Citation", "description": "Page reference", "type": "string"}
        },
        "required": ["risk_category", "risk_description", "citation"]
      }
    },
    "num_ai_risk_mentions": {"title": "Num Ai Risk Mentions", "type": "integer", "default": 0},
    "ai_strategy_mentioned": {"title": "Ai Strategy Mentioned", "type": "boolean", "default": false},
    "ai_investment_mentioned": {"title": "Ai Investment Mentioned", "type": "boolean", "default": false},
    "ai_competition_mentioned": {"title": "Ai Competition Mentioned", "type": "boolean", "default": false},
    "regulatory_ai_risk": {"title": "Regulatory Ai Risk", "type": "boolean", "default": false}
  },
  "required": ["company_name", "ticker", "filing_type", "filing_date", "fiscal_year", "ai_risk_mentioned"]
}`
