// Package store persists ingested documents, the classified output dataset
// and stage run history. Postgres and SQLite implementations share the
// Store interface.
package store

import (
	"context"

	"github.com/sells-group/reviewpower/internal/model"
)

// DefaultBatchSize is the number of documents written per insert batch.
const DefaultBatchSize = 10000

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  model.Stage     `json:"stage,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Source documents
	CountBusinesses(ctx context.Context) (int, error)
	CountReviews(ctx context.Context) (int, error)
	DropDocuments(ctx context.Context) error
	InsertBusinesses(ctx context.Context, docs []model.RawBusiness) (int64, error)
	InsertReviews(ctx context.Context, docs []model.Review) (int64, error)
	ListOpenBusinesses(ctx context.Context) ([]model.RawBusiness, error)
	StreamReviews(ctx context.Context, fn func(model.Review) error) error

	// Output dataset
	SaveRecords(ctx context.Context, runID string, rows []model.BusinessRecord) (int64, error)
	ListRecords(ctx context.Context) ([]model.BusinessRecord, error)

	// Runs
	CreateRun(ctx context.Context, stage model.Stage) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, result model.RunResult) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var (
	businessColumns = []string{
		"business_id", "name", "city", "state", "latitude", "longitude",
		"categories", "stars", "review_count", "is_open",
	}
	reviewColumns = []string{
		"review_id", "business_id", "user_id", "stars", "useful", "funny", "cool", "date",
	}
	recordColumns = []string{
		"business_id", "name", "city", "state", "longitude", "latitude", "categories",
		"stars", "stars_avg", "review_count", "review_power_score", "cluster", "sector", "run_id",
	}
)

// businessValues flattens a document in businessColumns order. A non-string
// city is stored as NULL.
func businessValues(b model.RawBusiness) []any {
	var city any
	if s, ok := b.City.(string); ok {
		city = s
	}
	return []any{
		b.BusinessID, b.Name, city, b.State, b.Latitude, b.Longitude,
		b.Categories, b.Stars, b.ReviewCount, b.IsOpen,
	}
}

// dedupeBusinesses keeps the last document for each business id.
func dedupeBusinesses(docs []model.RawBusiness) []model.RawBusiness {
	pos := make(map[string]int, len(docs))
	out := make([]model.RawBusiness, 0, len(docs))
	for _, d := range docs {
		if i, ok := pos[d.BusinessID]; ok {
			out[i] = d
			continue
		}
		pos[d.BusinessID] = len(out)
		out = append(out, d)
	}
	return out
}

// reviewValues flattens a document in reviewColumns order. Only float64
// ratings are stored; anything else becomes NULL.
func reviewValues(r model.Review) []any {
	var stars any
	if f, ok := r.Stars.(float64); ok {
		stars = f
	}
	return []any{r.ReviewID, r.BusinessID, r.UserID, stars, r.Useful, r.Funny, r.Cool, r.Date}
}

func recordValues(runID string, r *model.BusinessRecord) []any {
	return []any{
		r.BusinessID, r.Name, r.City, r.State, r.Longitude, r.Latitude, r.Categories,
		r.Stars, r.StarsAvg, r.ReviewCount, r.ReviewPowerScore, r.Cluster, string(r.Sector), runID,
	}
}

// reviewFromScan rebuilds the fields the aggregator needs from a scanned row.
func reviewFromScan(businessID string, stars float64, hasStars bool) model.Review {
	r := model.Review{BusinessID: businessID}
	if hasStars {
		r.Stars = stars
	}
	return r
}

func runStatus(result model.RunResult) (model.RunStatus, string) {
	if result.Err != nil {
		return model.RunStatusFailed, result.Err.Error()
	}
	return model.RunStatusComplete, ""
}

func runLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (model.BusinessRecord, error) {
	var r model.BusinessRecord
	var sector string
	err := row.Scan(
		&r.BusinessID, &r.Name, &r.City, &r.State, &r.Longitude, &r.Latitude, &r.Categories,
		&r.Stars, &r.StarsAvg, &r.ReviewCount, &r.ReviewPowerScore, &r.Cluster, &sector,
	)
	r.Sector = model.Sector(sector)
	return r, err
}
