package filings

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/model"
	"github.com/sells-group/warehouse-rag/internal/store"
)

// QueryName identifies one of the fixed analytical queries.
type QueryName string

const (
	RiskDistribution QueryName = "risk-distribution"
	OperationalRisks QueryName = "operational-risks"
	RiskEvolution    QueryName = "risk-evolution"
	RiskTimeline     QueryName = "risk-timeline"
	RiskProfiles     QueryName = "risk-profiles"
	CompanySummary   QueryName = "company-summary"
)

// QueryNames returns every query in index order.
func QueryNames() []QueryName {
	return []QueryName{
		RiskDistribution,
		OperationalRisks,
		RiskEvolution,
		RiskTimeline,
		RiskProfiles,
		CompanySummary,
	}
}

var querySQL = map[QueryName]string{
	RiskDistribution: `
		SELECT risk_category, COUNT(*) AS total_mentions,
		       COUNT(DISTINCT company_name) AS companies_mentioning
		FROM ai_risk_mentions
		WHERE risk_category IS NOT NULL
		GROUP BY risk_category
		ORDER BY total_mentions DESC`,

	OperationalRisks: `
		WITH ranked_risks AS (
			SELECT company_name, ticker, risk_description, citation,
			       LENGTH(risk_description) AS description_length,
			       ROW_NUMBER() OVER (PARTITION BY company_name ORDER BY LENGTH(risk_description) DESC) AS rn
			FROM ai_risk_mentions
			WHERE risk_category = 'Operational'
		)
		SELECT company_name, ticker, risk_description, citation, description_length
		FROM ranked_risks
		WHERE rn = 1
		ORDER BY company_name`,

	RiskEvolution: `
		SELECT company_name, ticker, fiscal_year, fiscal_quarter,
		       risk_category, risk_description, citation
		FROM ai_risk_mentions
		WHERE fiscal_year = '2025'
		ORDER BY company_name, fiscal_quarter`,

	RiskTimeline: `
		SELECT fiscal_year, fiscal_quarter,
		       COUNT(DISTINCT source_file) AS num_filings,
		       SUM(num_ai_risk_mentions) AS total_risk_mentions,
		       AVG(num_ai_risk_mentions) AS avg_risk_mentions_per_filing,
		       SUM(CASE WHEN regulatory_ai_risk THEN 1 ELSE 0 END) AS filings_with_regulatory_risk
		FROM ai_risk_filings
		GROUP BY fiscal_year, fiscal_quarter
		ORDER BY fiscal_year, fiscal_quarter`,

	RiskProfiles: `
		SELECT company_name, ticker, risk_category, COUNT(*) AS frequency
		FROM ai_risk_mentions
		WHERE risk_category IS NOT NULL
		GROUP BY company_name, ticker, risk_category
		ORDER BY company_name, frequency DESC`,

	CompanySummary: `
		SELECT company_name, ticker, COUNT(*) AS total_filings,
		       AVG(num_ai_risk_mentions) AS avg_risk_mentions,
		       SUM(CASE WHEN regulatory_ai_risk THEN 1 ELSE 0 END) AS filings_with_regulatory_risk,
		       SUM(CASE WHEN ai_competition_mentioned THEN 1 ELSE 0 END) AS filings_mentioning_competition,
		       SUM(CASE WHEN ai_investment_mentioned THEN 1 ELSE 0 END) AS filings_mentioning_investment
		FROM ai_risk_filings
		GROUP BY company_name, ticker
		ORDER BY avg_risk_mentions DESC`,
}

// SQL returns the query text.
func (q QueryName) SQL() string {
	return querySQL[q]
}

// Valid reports whether q names a defined query.
func (q QueryName) Valid() bool {
	_, ok := querySQL[q]
	return ok
}

// ParseQueryName accepts a query name or its index. Unknown identifiers
// fall back to RiskDistribution; ok reports whether s was recognized.
func ParseQueryName(s string) (q QueryName, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RiskDistribution, true
	}
	names := QueryNames()
	if i, err := strconv.Atoi(s); err == nil {
		if i >= 0 && i < len(names) {
			return names[i], true
		}
		return RiskDistribution, false
	}
	if name := QueryName(strings.ToLower(s)); name.Valid() {
		return name, true
	}
	return RiskDistribution, false
}

// QueryEngine runs the fixed analytical queries.
type QueryEngine struct {
	st store.Store
}

// NewQueryEngine creates a QueryEngine.
func NewQueryEngine(st store.Store) *QueryEngine {
	return &QueryEngine{st: st}
}

// Run executes the query identified by id, falling back to
// RiskDistribution when id is not recognized.
func (e *QueryEngine) Run(ctx context.Context, id string) (QueryName, *model.ResultSet, error) {
	name, ok := ParseQueryName(id)
	if !ok {
		zap.L().Warn("filings: unknown query, using default",
			zap.String("query", id), zap.String("default", string(name)))
	}
	rs, err := e.RunQuery(ctx, name)
	return name, rs, err
}

// RunQuery executes a known query.
func (e *QueryEngine) RunQuery(ctx context.Context, name QueryName) (*model.ResultSet, error) {
	sql := name.SQL()
	if sql == "" {
		return nil, eris.Errorf("filings: unknown query %q", name)
	}
	rs, err := e.st.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "filings: run query %s", name)
	}
	zap.L().Debug("filings: query complete", zap.String("query", string(name)), zap.Int("rows", len(rs.Rows)))
	return rs, nil
}
