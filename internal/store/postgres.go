package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/db"
	"github.com/sells-group/warehouse-rag/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds connection settings that are not part of the DSN.
type PoolConfig struct {
	// Schema is created if missing and used as the session search_path.
	Schema   string
	MaxConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	var schema string
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		schema = poolCfg.Schema
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	if schema != "" {
		pgxCfg.ConnConfig.RuntimeParams["search_path"] = schema
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s := &PostgresStore{pool: pool, closeFn: pool.Close}
	if schema != "" {
		if err := s.ensureSchema(ctx, schema); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) ensureSchema(ctx context.Context, schema string) error {
	_, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+db.Identifier(schema))
	return eris.Wrapf(err, "postgres: create schema %s", schema)
}

const postgresChunkDDL = `
CREATE TABLE IF NOT EXISTS wikipedia_chunks (
	chunk_id    TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	chunk_text  TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_wikipedia_chunks_title ON wikipedia_chunks(title);
`

// EnsureChunkTable creates the chunk table and, when permitted, the pg_trgm
// extension used by the similarity tier.
func (s *PostgresStore) EnsureChunkTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresChunkDDL); err != nil {
		return eris.Wrap(err, "postgres: create chunk table")
	}
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS pg_trgm"); err != nil {
		zap.L().Warn("postgres: pg_trgm unavailable, similarity search disabled", zap.Error(err))
	}
	return nil
}

// ReplaceChunks deletes any stored chunks for title and loads chunks in the
// same transaction.
func (s *PostgresStore) ReplaceChunks(ctx context.Context, title string, chunks []model.ArticleChunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace chunks")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM wikipedia_chunks WHERE title = $1`, title); err != nil {
		return eris.Wrapf(err, "postgres: delete chunks for %q", title)
	}

	rows := make([][]any, len(chunks))
	for i, c := range chunks {
		rows[i] = chunkValues(c)
	}
	if _, err := db.CopyFrom(ctx, tx, ChunkTable, chunkColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: load chunks for %q", title)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit replace chunks")
	}
	return nil
}

// RebuildSearchIndex drops and recreates the full-text index in one
// transaction. It blocks until the new index is built.
func (s *PostgresStore) RebuildSearchIndex(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin rebuild search index")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DROP INDEX IF EXISTS "+searchIndexID); err != nil {
		return eris.Wrap(err, "postgres: drop search index")
	}
	if _, err := tx.Exec(ctx, "CREATE INDEX IF NOT EXISTS "+searchIndexID+
		" ON wikipedia_chunks USING GIN (to_tsvector('english', chunk_text))"); err != nil {
		return eris.Wrap(err, "postgres: create search index")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit rebuild search index")
	}
	return nil
}

// SearchIndex ranks chunks against query with the full-text index.
func (s *PostgresStore) SearchIndex(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, searchIndexID).Scan(&exists); err != nil {
		return nil, eris.Wrap(err, "postgres: check search index")
	}
	if !exists {
		return nil, model.ErrSearchUnavailable
	}

	rows, err := s.pool.Query(ctx, `
		SELECT title, chunk_text,
			ts_rank(to_tsvector('english', chunk_text), plainto_tsquery('english', $1))::float8 AS score
		FROM wikipedia_chunks
		WHERE to_tsvector('english', chunk_text) @@ plainto_tsquery('english', $1)
		ORDER BY score DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search index")
	}
	return collectChunks(rows)
}

// SearchSimilarity returns chunks whose trigram similarity to query exceeds
// threshold.
func (s *PostgresStore) SearchSimilarity(ctx context.Context, query string, threshold float64, limit int) ([]model.RetrievedChunk, error) {
	var installed bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pg_trgm')`).Scan(&installed); err != nil {
		return nil, eris.Wrap(err, "postgres: check pg_trgm")
	}
	if !installed {
		return nil, model.ErrSearchUnavailable
	}

	rows, err := s.pool.Query(ctx, `
		SELECT title, chunk_text, similarity(chunk_text, $1)::float8 AS score
		FROM wikipedia_chunks
		WHERE similarity(chunk_text, $1) > $2
		ORDER BY score DESC
		LIMIT $3`, query, threshold, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search similarity")
	}
	return collectChunks(rows)
}

// SearchSubstring returns chunks containing query, ignoring case.
func (s *PostgresStore) SearchSubstring(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT title, chunk_text, 0::float8 AS score
		FROM wikipedia_chunks
		WHERE strpos(lower(chunk_text), lower($1)) > 0
		ORDER BY title, chunk_index
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search substring")
	}
	return collectChunks(rows)
}

// SampleChunks returns up to limit chunks without filtering.
func (s *PostgresStore) SampleChunks(ctx context.Context, limit int) ([]model.RetrievedChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT title, chunk_text, 0::float8 AS score
		FROM wikipedia_chunks
		ORDER BY title, chunk_index
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: sample chunks")
	}
	return collectChunks(rows)
}

func collectChunks(rows pgx.Rows) ([]model.RetrievedChunk, error) {
	defer rows.Close()

	var out []model.RetrievedChunk
	for rows.Next() {
		var c model.RetrievedChunk
		if err := rows.Scan(&c.Title, &c.Text, &c.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chunk")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate chunks")
}

const postgresFilingDDL = `
CREATE TABLE IF NOT EXISTS ai_risk_filings (
	company_name             TEXT,
	ticker                   TEXT,
	filing_type              TEXT,
	filing_date              TEXT,
	fiscal_year              TEXT,
	fiscal_quarter           TEXT,
	source_file              TEXT,
	ai_risk_mentioned        BOOLEAN,
	num_ai_risk_mentions     INTEGER,
	ai_strategy_mentioned    BOOLEAN,
	ai_investment_mentioned  BOOLEAN,
	ai_competition_mentioned BOOLEAN,
	regulatory_ai_risk       BOOLEAN,
	ai_risk_mentions_json    TEXT,
	loaded_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ai_risk_mentions (
	company_name       TEXT,
	ticker             TEXT,
	fiscal_year        TEXT,
	fiscal_quarter     TEXT,
	source_file        TEXT,
	risk_category      TEXT,
	risk_description   TEXT,
	severity_indicator TEXT,
	citation           TEXT,
	loaded_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ai_risk_mentions_category ON ai_risk_mentions(risk_category);
CREATE INDEX IF NOT EXISTS idx_ai_risk_filings_company ON ai_risk_filings(company_name);
`

// EnsureFilingTables creates the filings and mentions tables.
func (s *PostgresStore) EnsureFilingTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresFilingDDL)
	return eris.Wrap(err, "postgres: create filing tables")
}

// InsertFiling writes one filing row.
func (s *PostgresStore) InsertFiling(ctx context.Context, row model.FilingRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_risk_filings (
			company_name, ticker, filing_type, filing_date, fiscal_year,
			fiscal_quarter, source_file, ai_risk_mentioned, num_ai_risk_mentions,
			ai_strategy_mentioned, ai_investment_mentioned, ai_competition_mentioned,
			regulatory_ai_risk, ai_risk_mentions_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		filingValues(row)...)
	return eris.Wrapf(err, "postgres: insert filing %s", row.SourceFile)
}

// InsertMentions bulk-loads mention rows with COPY.
func (s *PostgresStore) InsertMentions(ctx context.Context, rows []model.MentionRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = mentionValues(r)
	}
	n, err := db.CopyFrom(ctx, s.pool, MentionTable, mentionColumns, values)
	if err != nil {
		return n, eris.Wrap(err, "postgres: insert mentions")
	}
	return n, nil
}

// Query runs sql and collects every row.
func (s *PostgresStore) Query(ctx context.Context, sql string) (*model.ResultSet, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	rs := model.NewResultSet(cols)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: read row")
		}
		rs.Append(vals)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rows")
	}
	return rs, nil
}

// Ping verifies the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
