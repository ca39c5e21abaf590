package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/db"
	"github.com/sells-group/circulars-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// recordColumns is the COPY column list for the records table.
var recordColumns = []string{
	"run_id", "idx", "title", "issue_date", "confidence",
	"category", "source_strategy", "detail_url", "pdf_url",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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
	zap.L().Info("postgres: connected", zap.Int32("max_conns", maxConns))
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	category     TEXT NOT NULL,
	subfolder    TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	feed_url     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	result       JSONB,
	error        TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx             INTEGER NOT NULL,
	title           TEXT NOT NULL,
	issue_date      DATE NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	source_strategy TEXT NOT NULL DEFAULT '',
	detail_url      TEXT NOT NULL DEFAULT '',
	pdf_url         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_category ON runs(category, subfolder);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_records_issue_date ON records(issue_date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, target model.Target) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, category, subfolder, url, feed_url, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, target.Category, target.Subfolder, target.URL, target.FeedURL, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Target:    target,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun stores the result and COPYs the run's records in one
// transaction.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := storedResult(result)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, record_count = $3, updated_at = $4 WHERE id = $5`,
		resultJSON, string(completedStatus(result)), len(result.Records), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}

	rows := make([][]any, len(result.Records))
	for i, r := range result.Records {
		rows[i] = []any{runID, i, r.Title, r.IssueDate.Time(), r.Confidence,
			r.Category, string(r.SourceStrategy), r.DetailURL, r.PDFURL}
	}
	if _, err := db.ReplaceRows(ctx, tx, "records", "run_id", runID, recordColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: write records for run %s", runID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run result")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if run.Result != nil {
		recs, err := s.ListRecords(ctx, runID)
		if err != nil {
			return nil, err
		}
		run.Result.Records = recs
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argN)
		args = append(args, filter.Category)
		argN++
	}
	if filter.Subfolder != "" {
		query += fmt.Sprintf(` AND subfolder = $%d`, argN)
		args = append(args, filter.Subfolder)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argN)
	args = append(args, filter.limit())
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, issue_date, confidence, category, source_strategy, detail_url, pdf_url
		 FROM records WHERE run_id = $1 ORDER BY idx`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list records %s", runID)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var r model.Record
		var date time.Time
		var strategy string
		if err := rows.Scan(&r.Title, &date, &r.Confidence, &r.Category, &strategy, &r.DetailURL, &r.PDFURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.IssueDate = model.DateOf(date)
		r.SourceStrategy = model.Strategy(strategy)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var resultJSON []byte

	if err := row.Scan(&r.ID, &r.Target.Category, &r.Target.Subfolder, &r.Target.URL, &r.Target.FeedURL,
		&status, &resultJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
