package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/db"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	batchSize int
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns  int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns  int32 `yaml:"min_conns" mapstructure:"min_conns"`
	BatchSize int   `yaml:"batch_size" mapstructure:"batch_size"`
}

// NewPostgres creates a PostgresStore with a connection pool. Connecting and
// pinging are retried while the server reports transient errors.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns, batch := int32(10), int32(2), DefaultBatchSize
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.BatchSize > 0 {
			batch = poolCfg.BatchSize
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres connect")
	pool, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, batchSize: batch}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	business_id  TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	city         TEXT,
	state        TEXT NOT NULL DEFAULT '',
	latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
	categories   TEXT NOT NULL DEFAULT '',
	stars        DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	is_open      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reviews (
	review_id   TEXT NOT NULL,
	business_id TEXT NOT NULL,
	user_id     TEXT NOT NULL DEFAULT '',
	stars       DOUBLE PRECISION,
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
	longitude          DOUBLE PRECISION NOT NULL,
	latitude           DOUBLE PRECISION NOT NULL,
	categories         TEXT NOT NULL,
	stars              DOUBLE PRECISION NOT NULL,
	stars_avg          DOUBLE PRECISION NOT NULL,
	review_count       INTEGER NOT NULL,
	review_power_score DOUBLE PRECISION NOT NULL,
	cluster            INTEGER NOT NULL,
	sector             TEXT NOT NULL,
	run_id             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_business_records_sector ON business_records(sector);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	rows_in     INTEGER NOT NULL DEFAULT 0,
	rows_out    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
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

func (s *PostgresStore) count(ctx context.Context, table string) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count %s", table)
	}
	return int(n), nil
}

func (s *PostgresStore) CountBusinesses(ctx context.Context) (int, error) {
	return s.count(ctx, "businesses")
}

func (s *PostgresStore) CountReviews(ctx context.Context) (int, error) {
	return s.count(ctx, "reviews")
}

func (s *PostgresStore) DropDocuments(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE businesses, reviews")
	return eris.Wrap(err, "postgres: drop documents")
}

func (s *PostgresStore) InsertBusinesses(ctx context.Context, docs []model.RawBusiness) (int64, error) {
	// ON CONFLICT cannot touch the same key twice in one statement.
	docs = dedupeBusinesses(docs)
	rows := make([][]any, len(docs))
	for i := range docs {
		rows[i] = businessValues(docs[i])
	}
	return s.upsert(ctx, db.UpsertConfig{
		Table:        "businesses",
		Columns:      businessColumns,
		ConflictKeys: []string{"business_id"},
	}, rows)
}

// InsertReviews appends reviews with COPY. Reviews carry no uniqueness
// constraint; callers skip files that are already loaded.
func (s *PostgresStore) InsertReviews(ctx context.Context, docs []model.Review) (int64, error) {
	rows := make([][]any, len(docs))
	for i := range docs {
		rows[i] = reviewValues(docs[i])
	}
	var total int64
	for _, batch := range db.Batches(rows, s.batch()) {
		n, err := db.CopyFrom(ctx, s.pool, "reviews", reviewColumns, batch)
		if err != nil {
			return total, eris.Wrap(err, "postgres: insert reviews")
		}
		total += n
	}
	return total, nil
}

func (s *PostgresStore) ListOpenBusinesses(ctx context.Context) ([]model.RawBusiness, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT business_id, name, COALESCE(city, ''), state, latitude, longitude, categories, stars, review_count, is_open
		 FROM businesses
		 WHERE business_id <> '' AND review_count > 0 AND is_open = 1
		 ORDER BY business_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list open businesses")
	}
	defer rows.Close()

	var out []model.RawBusiness
	for rows.Next() {
		var b model.RawBusiness
		var city string
		if err := rows.Scan(&b.BusinessID, &b.Name, &city, &b.State, &b.Latitude, &b.Longitude,
			&b.Categories, &b.Stars, &b.ReviewCount, &b.IsOpen); err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		b.City = city
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list open businesses iterate")
}

func (s *PostgresStore) StreamReviews(ctx context.Context, fn func(model.Review) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT business_id, COALESCE(stars, 0), stars IS NOT NULL FROM reviews`)
	if err != nil {
		return eris.Wrap(err, "postgres: stream reviews")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var stars float64
		var hasStars bool
		if err := rows.Scan(&id, &stars, &hasStars); err != nil {
			return eris.Wrap(err, "postgres: scan review")
		}
		if err := fn(reviewFromScan(id, stars, hasStars)); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "postgres: stream reviews iterate")
}

// SaveRecords upserts the output dataset for runID and removes rows left
// over from earlier runs.
func (s *PostgresStore) SaveRecords(ctx context.Context, runID string, records []model.BusinessRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = recordValues(runID, &records[i])
	}
	n, err := s.upsert(ctx, db.UpsertConfig{
		Table:        "business_records",
		Columns:      recordColumns,
		ConflictKeys: []string{"business_id"},
	}, rows)
	if err != nil {
		return n, err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM business_records WHERE run_id <> $1`, runID); err != nil {
		return n, eris.Wrap(err, "postgres: prune records")
	}
	return n, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]model.BusinessRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT business_id, name, city, state, longitude, latitude, categories, stars, stars_avg,
		        review_count, review_power_score, cluster, sector
		 FROM business_records ORDER BY business_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []model.BusinessRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, stage model.Stage) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, stage, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, string(stage), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{ID: id, Stage: stage, Status: model.RunStatusRunning, StartedAt: now}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, result model.RunResult) error {
	status, msg := runStatus(result)
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, rows_in = $2, rows_out = $3, skipped = $4, error = $5, finished_at = $6 WHERE id = $7`,
		string(status), result.RowsIn, result.RowsOut, result.Skipped, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, stage, status, rows_in, rows_out, skipped, error, started_at, finished_at FROM runs WHERE true`
	args := []any{}

	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		query += fmt.Sprintf(` AND stage = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	args = append(args, runLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var stage, status string
		if err := rows.Scan(&r.ID, &stage, &status, &r.RowsIn, &r.RowsOut, &r.Skipped,
			&r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Stage = model.Stage(stage)
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) upsert(ctx context.Context, cfg db.UpsertConfig, rows [][]any) (int64, error) {
	var total int64
	for _, batch := range db.Batches(rows, s.batch()) {
		n, err := db.BulkUpsert(ctx, s.pool, cfg, batch)
		if err != nil {
			return total, eris.Wrapf(err, "postgres: upsert %s", cfg.Table)
		}
		total += n
	}
	return total, nil
}

func (s *PostgresStore) batch() int {
	if s.batchSize > 0 {
		return s.batchSize
	}
	return DefaultBatchSize
}
