package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/circulars-cli/internal/model"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	subfolder    TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	feed_url     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	result       TEXT,
	error        TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx             INTEGER NOT NULL,
	title           TEXT NOT NULL,
	issue_date      TEXT NOT NULL,
	confidence      REAL NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	source_strategy TEXT NOT NULL DEFAULT '',
	detail_url      TEXT NOT NULL DEFAULT '',
	pdf_url         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_category ON runs(category, subfolder);
CREATE INDEX IF NOT EXISTS idx_records_issue_date ON records(issue_date);
`

const runColumns = `id, category, subfolder, url, feed_url, status, result, error, created_at, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, target model.Target) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, category, subfolder, url, feed_url, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, target.Category, target.Subfolder, target.URL, target.FeedURL, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Target:    target,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun stores the result and replaces the run's records in one
// transaction.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := storedResult(result)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, record_count = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(completedStatus(result)), len(result.Records), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	if err := checkRowsAffected(res, runID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear records %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, idx, title, issue_date, confidence, category, source_strategy, detail_url, pdf_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range result.Records {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Title, r.IssueDate.String(), r.Confidence,
			r.Category, string(r.SourceStrategy), r.DetailURL, r.PDFURL); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d of run %s", i, runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run result")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
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

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Subfolder != "" {
		query += ` AND subfolder = ?`
		args = append(args, filter.Subfolder)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, issue_date, confidence, category, source_strategy, detail_url, pdf_url
		 FROM records WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	records := []model.Record{}
	for rows.Next() {
		var r model.Record
		var date, strategy string
		if err := rows.Scan(&r.Title, &date, &r.Confidence, &r.Category, &strategy, &r.DetailURL, &r.PDFURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if r.IssueDate, err = model.ParseDate(date); err != nil {
			return nil, err
		}
		r.SourceStrategy = model.Strategy(strategy)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Target.Category, &r.Target.Subfolder, &r.Target.URL, &r.Target.FeedURL,
		&status, &resultJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: get run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)

	if resultJSON.Valid && resultJSON.String != "" {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
