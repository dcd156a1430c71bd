package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nri-news/brief-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the run log needs, kept narrow so
// tests can substitute a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	finished_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_run_outcomes_tuple ON run_outcomes(region, period, finished_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, o model.Outcome) error {
	if o.RunID == "" {
		o.RunID = uuid.New().String()
	}
	if o.FinishedAt.IsZero() {
		o.FinishedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_outcomes
			(id, region, period, date, status, stage, failure_kind, error, bulletin_id,
			 article_count, duplicates, prompt_tokens, output_tokens, cost_usd, duration_ms, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.RunID, o.Region, string(o.Period), o.Date, string(o.Status), string(o.Stage),
		string(o.FailureKind), o.Error, o.BulletinID, o.ArticleCount, o.Duplicates,
		o.Usage.PromptTokens, o.Usage.CompletionTokens, o.CostUSD, o.DurationMS, o.FinishedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert outcome")
	}
	return nil
}

func (s *PostgresStore) LastN(ctx context.Context, region string, period model.Period, n int) ([]model.Outcome, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, region, period, date, status, stage, failure_kind, error, bulletin_id,
			article_count, duplicates, prompt_tokens, output_tokens, cost_usd, duration_ms, finished_at
		 FROM run_outcomes
		 WHERE region = $1 AND period = $2
		 ORDER BY finished_at DESC
		 LIMIT $3`,
		region, string(period), n,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query outcomes")
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
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		o.Period = model.Period(period)
		o.Status = model.RunStatus(status)
		o.Stage = model.Stage(stage)
		o.FailureKind = model.FailureKind(kind)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate outcomes")
	}
	return out, nil
}

// Open constructs a run log store from configuration.
func Open(ctx context.Context, driver, sqlitePath, databaseURL string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	case "", "sqlite":
		return NewSQLite(sqlitePath)
	default:
		return nil, eris.Errorf("runlog: unknown driver %q", driver)
	}
}
