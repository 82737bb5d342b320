package store

import (
	"context"

	"github.com/sells-group/warehouse-rag/internal/model"
)

// Table names. Identifiers are unquoted so the warehouse folds them the same
// way the reporting queries do.
const (
	ChunkTable    = "wikipedia_chunks"
	FilingTable   = "ai_risk_filings"
	MentionTable  = "ai_risk_mentions"
	searchIndexID = "wikipedia_chunks_search_idx"
)

// Store defines the warehouse operations used by both pipelines.
type Store interface {
	// Article chunks
	EnsureChunkTable(ctx context.Context) error
	ReplaceChunks(ctx context.Context, title string, chunks []model.ArticleChunk) error
	RebuildSearchIndex(ctx context.Context) error

	// Retrieval tiers. A tier the warehouse cannot serve returns
	// model.ErrSearchUnavailable.
	SearchIndex(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error)
	SearchSimilarity(ctx context.Context, query string, threshold float64, limit int) ([]model.RetrievedChunk, error)
	SearchSubstring(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error)
	SampleChunks(ctx context.Context, limit int) ([]model.RetrievedChunk, error)

	// Filings
	EnsureFilingTables(ctx context.Context) error
	InsertFiling(ctx context.Context, row model.FilingRow) error
	InsertMentions(ctx context.Context, rows []model.MentionRow) (int64, error)

	// Query runs a read-only statement and returns its tabular result.
	Query(ctx context.Context, sql string) (*model.ResultSet, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

var chunkColumns = []string{"chunk_id", "title", "chunk_text", "chunk_index"}

var filingColumns = []string{
	"company_name", "ticker", "filing_type", "filing_date", "fiscal_year",
	"fiscal_quarter", "source_file", "ai_risk_mentioned", "num_ai_risk_mentions",
	"ai_strategy_mentioned", "ai_investment_mentioned", "ai_competition_mentioned",
	"regulatory_ai_risk", "ai_risk_mentions_json",
}

var mentionColumns = []string{
	"company_name", "ticker", "fiscal_year", "fiscal_quarter", "source_file",
	"risk_category", "risk_description", "severity_indicator", "citation",
}

func chunkValues(c model.ArticleChunk) []any {
	return []any{c.ChunkID, c.Title, c.Text, c.Index}
}

func filingValues(r model.FilingRow) []any {
	return []any{
		r.CompanyName, r.Ticker, r.FilingType, r.FilingDate, r.FiscalYear,
		r.FiscalQuarter, r.SourceFile, r.AIRiskMentioned, r.NumAIRiskMentions,
		r.AIStrategyMentioned, r.AIInvestmentMentioned, r.AICompetitionMentioned,
		r.RegulatoryAIRisk, r.AIRiskMentionsJSON,
	}
}

func mentionValues(r model.MentionRow) []any {
	return []any{
		r.CompanyName, r.Ticker, r.FiscalYear, r.FiscalQuarter, r.SourceFile,
		string(r.RiskCategory), r.RiskDescription, r.SeverityIndicator, r.Citation,
	}
}
