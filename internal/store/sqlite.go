package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/reviewpower/internal/model"
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
	// A single writer avoids SQLITE_BUSY between batches.
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

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	business_id  TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	city         TEXT,
	state        TEXT NOT NULL DEFAULT '',
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	categories   TEXT NOT NULL DEFAULT '',
	stars        REAL NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	is_open      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reviews (
	review_id   TEXT NOT NULL,
	business_id TEXT NOT NULL,
	user_id     TEXT NOT NULL DEFAULT '',
	stars       REAL,
	useful      INTEGER NOT NULL DEFAULT 0,
	funny       INTEGER NOT NULL DEFAULT 0,
	cool        INTEGER NOT NULL DEFAULT 0,
	date        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_reviews_business_id ON reviews(business_id);

CREATE TABLE IF NOT EXISTS business_records (
	business_id        TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	city               TEXT NOT NULL,
	state              TEXT NOT NULL,
	longitude          REAL NOT NULL,
	latitude           REAL NOT NULL,
	categories         TEXT NOT NULL,
	stars              REAL NOT NULL,
	stars_avg          REAL NOT NULL,
	review_count       INTEGER NOT NULL,
	review_power_score REAL NOT NULL,
	cluster            INTEGER NOT NULL,
	sector             TEXT NOT NULL,
	run_id             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	rows_in     INTEGER NOT NULL DEFAULT 0,
	rows_out    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count %s", table)
	}
	return n, nil
}

func (s *SQLiteStore) CountBusinesses(ctx context.Context) (int, error) {
	return s.count(ctx, "businesses")
}

func (s *SQLiteStore) CountReviews(ctx context.Context) (int, error) {
	return s.count(ctx, "reviews")
}

func (s *SQLiteStore) DropDocuments(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM businesses; DELETE FROM reviews;")
	return eris.Wrap(err, "sqlite: drop documents")
}

func (s *SQLiteStore) InsertBusinesses(ctx context.Context, docs []model.RawBusiness) (int64, error) {
	rows := make([][]any, len(docs))
	for i := range docs {
		rows[i] = businessValues(docs[i])
	}
	return s.insertAll(ctx, "INSERT OR REPLACE", "businesses", businessColumns, rows)
}

func (s *SQLiteStore) InsertReviews(ctx context.Context, docs []model.Review) (int64, error) {
	rows := make([][]any, len(docs))
	for i := range docs {
		rows[i] = reviewValues(docs[i])
	}
	return s.insertAll(ctx, "INSERT", "reviews", reviewColumns, rows)
}

func (s *SQLiteStore) ListOpenBusinesses(ctx context.Context) ([]model.RawBusiness, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT business_id, name, COALESCE(city, ''), state, latitude, longitude, categories, stars, review_count, is_open
		 FROM businesses
		 WHERE business_id <> '' AND review_count > 0 AND is_open = 1
		 ORDER BY business_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list open businesses")
	}
	defer rows.Close()

	var out []model.RawBusiness
	for rows.Next() {
		var b model.RawBusiness
		var city string
		if err := rows.Scan(&b.BusinessID, &b.Name, &city, &b.State, &b.Latitude, &b.Longitude,
			&b.Categories, &b.Stars, &b.ReviewCount, &b.IsOpen); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		b.City = city
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list open businesses iterate")
}

func (s *SQLiteStore) StreamReviews(ctx context.Context, fn func(model.Review) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT business_id, COALESCE(stars, 0), stars IS NOT NULL FROM reviews`)
	if err != nil {
		return eris.Wrap(err, "sqlite: stream reviews")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var stars float64
		var hasStars bool
		if err := rows.Scan(&id, &stars, &hasStars); err != nil {
			return eris.Wrap(err, "sqlite: scan review")
		}
		if err := fn(reviewFromScan(id, stars, hasStars)); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "sqlite: stream reviews iterate")
}

// SaveRecords replaces the output dataset with records of runID.
func (s *SQLiteStore) SaveRecords(ctx context.Context, runID string, records []model.BusinessRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = recordValues(runID, &records[i])
	}
	n, err := s.insertAll(ctx, "INSERT OR REPLACE", "business_records", recordColumns, rows)
	if err != nil {
		return n, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM business_records WHERE run_id <> ?`, runID); err != nil {
		return n, eris.Wrap(err, "sqlite: prune records")
	}
	return n, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]model.BusinessRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT business_id, name, city, state, longitude, latitude, categories, stars, stars_avg,
		        review_count, review_power_score, cluster, sector
		 FROM business_records ORDER BY business_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var out []model.BusinessRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, stage model.Stage) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(stage), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{ID: id, Stage: stage, Status: model.RunStatusRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, result model.RunResult) error {
	status, msg := runStatus(result)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, rows_in = ?, rows_out = ?, skipped = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), result.RowsIn, result.RowsOut, result.Skipped, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, stage, status, rows_in, rows_out, skipped, error, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, runLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var stage, status string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &stage, &status, &r.RowsIn, &r.RowsOut, &r.Skipped,
			&r.Error, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Stage = model.Stage(stage)
		r.Status = model.RunStatus(status)
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// insertAll writes rows in one transaction with a prepared statement.
func (s *SQLiteStore) insertAll(ctx context.Context, verb, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin insert %s", table)
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit insert %s", table)
	}
	return int64(len(rows)), nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
