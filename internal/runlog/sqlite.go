package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nri-news/brief-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
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

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS run_outcomes (
	id            TEXT PRIMARY KEY,
	region        TEXT NOT NULL,
	period        TEXT NOT NULL,
	date          TEXT NOT NULL,
	status        TEXT NOT NULL,
	stage         TEXT NOT NULL,
	failure_kind  TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	bulletin_id   TEXT NOT NULL DEFAULT '',
	article_count INTEGER NOT NULL DEFAULT 0,
	duplicates    INTEGER NOT NULL DEFAULT 0,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	finished_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_outcomes_tuple ON run_outcomes(region, period, finished_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Record(ctx context.Context, o model.Outcome) error {
	if o.RunID == "" {
		o.RunID = uuid.New().String()
	}
	if o.FinishedAt.IsZero() {
		o.FinishedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_outcomes
			(id, region, period, date, status, stage, failure_kind, error, bulletin_id,
			 article_count, duplicates, prompt_tokens, output_tokens, cost_usd, duration_ms, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Region, string(o.Period), o.Date, string(o.Status), string(o.Stage),
		string(o.FailureKind), o.Error, o.BulletinID, o.ArticleCount, o.Duplicates,
		o.Usage.PromptTokens, o.Usage.CompletionTokens, o.CostUSD, o.DurationMS, o.FinishedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert outcome")
	}
	return nil
}

func (s *SQLiteStore) LastN(ctx context.Context, region string, period model.Period, n int) ([]model.Outcome, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, region, period, date, status, stage, failure_kind, error, bulletin_id,
			article_count, duplicates, prompt_tokens, output_tokens, cost_usd, duration_ms, finished_at
		 FROM run_outcomes
		 WHERE region = ? AND period = ?
		 ORDER BY finished_at DESC
		 LIMIT ?`,
		region, string(period), n,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query outcomes")
	}
	defer rows.Close()

	var out []model.Outcome
	for rows.Next() {
		var o model.Outcome
		var period, status, stage, kind string
		if err := rows.Scan(
			&o.RunID, &o.Region, &period, &o.Date, &status, &stage, &kind, &o.Error,
			&o.BulletinID, &o.ArticleCount, &o.Duplicates,
			&o.Usage.PromptTokens, &o.Usage.CompletionTokens,
			&o.CostUSD, &o.DurationMS, &o.FinishedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		o.Period = model.Period(period)
		o.Status = model.RunStatus(status)
		o.Stage = model.Stage(stage)
		o.FailureKind = model.FailureKind(kind)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate outcomes")
	}
	return out, nil
}
