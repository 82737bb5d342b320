package store

import (
	"context"
	"database/sql"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/warehouse-rag/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. The managed search
// tier is an FTS5 table over the chunk text; there is no similarity tier.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection: a ":memory:" database is private to its connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteChunkDDL = `
CREATE TABLE IF NOT EXISTS wikipedia_chunks (
	chunk_id    TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	chunk_text  TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_wikipedia_chunks_title ON wikipedia_chunks(title);
`

const ftsTable = "wikipedia_chunks_fts"

func (s *SQLiteStore) EnsureChunkTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteChunkDDL)
	return eris.Wrap(err, "sqlite: create chunk table")
}

func (s *SQLiteStore) ReplaceChunks(ctx context.Context, title string, chunks []model.ArticleChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace chunks")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM wikipedia_chunks WHERE title = ?`, title); err != nil {
		return eris.Wrapf(err, "sqlite: delete chunks for %q", title)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO wikipedia_chunks (chunk_id, title, chunk_text, chunk_index) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare chunk insert")
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, chunkValues(c)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert chunk %s", c.ChunkID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace chunks")
}

// RebuildSearchIndex drops the FTS5 table, recreates it over the chunk table
// and repopulates it, all in one transaction.
func (s *SQLiteStore) RebuildSearchIndex(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin rebuild search index")
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS ` + ftsTable,
		`CREATE VIRTUAL TABLE IF NOT EXISTS ` + ftsTable + ` USING fts5(chunk_text, content='wikipedia_chunks', content_rowid='rowid')`,
		`INSERT INTO ` + ftsTable + `(` + ftsTable + `) VALUES ('rebuild')`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "sqlite: rebuild search index")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit rebuild search index")
}

func (s *SQLiteStore) SearchIndex(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, ftsTable).Scan(&n); err != nil {
		return nil, eris.Wrap(err, "sqlite: check search index")
	}
	if n == 0 {
		return nil, model.ErrSearchUnavailable
	}

	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.title, c.chunk_text, -bm25(`+ftsTable+`) AS score
		FROM `+ftsTable+`
		JOIN wikipedia_chunks c ON c.rowid = `+ftsTable+`.rowid
		WHERE `+ftsTable+` MATCH ?
		ORDER BY score DESC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search index")
	}
	return scanChunks(rows)
}

// SearchSimilarity is not supported: SQLite has no similarity function.
func (s *SQLiteStore) SearchSimilarity(context.Context, string, float64, int) ([]model.RetrievedChunk, error) {
	return nil, model.ErrSearchUnavailable
}

func (s *SQLiteStore) SearchSubstring(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, chunk_text, 0.0 AS score
		FROM wikipedia_chunks
		WHERE instr(lower(chunk_text), lower(?)) > 0
		ORDER BY title, chunk_index
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search substring")
	}
	return scanChunks(rows)
}

func (s *SQLiteStore) SampleChunks(ctx context.Context, limit int) ([]model.RetrievedChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, chunk_text, 0.0 AS score
		FROM wikipedia_chunks
		ORDER BY title, chunk_index
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: sample chunks")
	}
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]model.RetrievedChunk, error) {
	defer rows.Close()

	var out []model.RetrievedChunk
	for rows.Next() {
		var c model.RetrievedChunk
		if err := rows.Scan(&c.Title, &c.Text, &c.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chunk")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate chunks")
}

// ftsQuery turns free text into an FTS5 expression matching any of its
// words. Each word is quoted so punctuation and operators are literal.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " OR ")
}

const sqliteFilingDDL = `
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
	loaded_at                DATETIME NOT NULL DEFAULT (datetime('now'))
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
	loaded_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ai_risk_mentions_category ON ai_risk_mentions(risk_category);
CREATE INDEX IF NOT EXISTS idx_ai_risk_filings_company ON ai_risk_filings(company_name);
`

func (s *SQLiteStore) EnsureFilingTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteFilingDDL)
	return eris.Wrap(err, "sqlite: create filing tables")
}

func (s *SQLiteStore) InsertFiling(ctx context.Context, row model.FilingRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_risk_filings (
			company_name, ticker, filing_type, filing_date, fiscal_year,
			fiscal_quarter, source_file, ai_risk_mentioned, num_ai_risk_mentions,
			ai_strategy_mentioned, ai_investment_mentioned, ai_competition_mentioned,
			regulatory_ai_risk, ai_risk_mentions_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filingValues(row)...)
	return eris.Wrapf(err, "sqlite: insert filing %s", row.SourceFile)
}

func (s *SQLiteStore) InsertMentions(ctx context.Context, rows []model.MentionRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert mentions")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ai_risk_mentions (
			company_name, ticker, fiscal_year, fiscal_quarter, source_file,
			risk_category, risk_description, severity_indicator, citation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare mention insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, mentionValues(r)...); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert mention")
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit mentions")
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) Query(ctx context.Context, query string) (*model.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}
	rs := model.NewResultSet(cols)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		rs.Append(vals)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate rows")
	}
	return rs, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
