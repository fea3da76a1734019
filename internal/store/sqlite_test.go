package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reviewpower/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Businesses(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	docs := []model.RawBusiness{
		{BusinessID: "b2", Name: "Open", City: "Tampa", State: "FL", Stars: 4, ReviewCount: 20, IsOpen: 1},
		{BusinessID: "b1", Name: "Odd city", City: 42.0, State: "PA", Stars: 3, ReviewCount: 5, IsOpen: 1},
		{BusinessID: "b3", Name: "Closed", City: "Reno", ReviewCount: 50, IsOpen: 0},
		{BusinessID: "b4", Name: "No reviews", City: "Reno", ReviewCount: 0, IsOpen: 1},
	}
	n, err := st.InsertBusinesses(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	count, err := st.CountBusinesses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	open, err := st.ListOpenBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "b1", open[0].BusinessID)
	assert.Equal(t, "", open[0].City, "non-string city stored as NULL")
	assert.Equal(t, "b2", open[1].BusinessID)
	assert.Equal(t, "Tampa", open[1].City)
	assert.Equal(t, 20, open[1].ReviewCount)
}

func TestSQLite_ReviewsStream(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertReviews(ctx, []model.Review{
		{ReviewID: "r1", BusinessID: "b1", Stars: 4.0, Useful: 2},
		{ReviewID: "r2", BusinessID: "b1", Stars: nil},
		{ReviewID: "r3", BusinessID: "b2", Stars: 5.0, Cool: 1},
	})
	require.NoError(t, err)

	count, err := st.CountReviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var got []model.Review
	require.NoError(t, st.StreamReviews(ctx, func(r model.Review) error {
		got = append(got, r)
		return nil
	}))
	require.Len(t, got, 3)

	byStars := map[string][]any{}
	for _, r := range got {
		byStars[r.BusinessID] = append(byStars[r.BusinessID], r.Stars)
	}
	assert.ElementsMatch(t, []any{4.0, nil}, byStars["b1"])
	assert.Equal(t, []any{5.0}, byStars["b2"])
}

func TestSQLite_StreamReviews_CallbackError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := st.InsertReviews(ctx, []model.Review{{ReviewID: "r1", BusinessID: "b1", Stars: 1.0}})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = st.StreamReviews(ctx, func(model.Review) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSQLite_DropDocuments(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertBusinesses(ctx, []model.RawBusiness{{BusinessID: "b1", ReviewCount: 1, IsOpen: 1}})
	require.NoError(t, err)
	_, err = st.InsertReviews(ctx, []model.Review{{ReviewID: "r1", BusinessID: "b1"}})
	require.NoError(t, err)

	require.NoError(t, st.DropDocuments(ctx))

	nb, err := st.CountBusinesses(ctx)
	require.NoError(t, err)
	nr, err := st.CountReviews(ctx)
	require.NoError(t, err)
	assert.Zero(t, nb)
	assert.Zero(t, nr)
}

func record(id string, sector model.Sector) model.BusinessRecord {
	return model.BusinessRecord{
		FeaturedBusiness: model.FeaturedBusiness{
			Business: model.Business{
				BusinessID: id, Name: "Biz " + id, City: "Tampa", State: "FL",
				Longitude: -82.4, Latitude: 27.9, Categories: "Food",
				Stars: 4, StarsAvg: 4.25, ReviewCount: 12,
			},
			ReviewPowerScore: 10.26,
		},
		Cluster: 2,
		Sector:  sector,
	}
}

func TestSQLite_SaveRecords_ReplacesPreviousRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveRecords(ctx, "run-1", []model.BusinessRecord{record("a", model.SectorOthers), record("b", model.SectorBestRated)})
	require.NoError(t, err)

	n, err := st.SaveRecords(ctx, "run-2", []model.BusinessRecord{record("b", model.SectorOverrated)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := st.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, record("b", model.SectorOverrated), got[0])
}

func TestSQLite_Runs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	agg, err := st.CreateRun(ctx, model.StageAggregate)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, agg.Status)
	require.NoError(t, st.FinishRun(ctx, agg.ID, model.RunResult{RowsIn: 100, RowsOut: 40, Skipped: 3}))

	cl, err := st.CreateRun(ctx, model.StageCluster)
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, cl.ID, model.RunResult{Err: errors.New("insufficient_data: 2 distinct points")}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	aggs, err := st.ListRuns(ctx, RunFilter{Stage: model.StageAggregate})
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, model.RunStatusComplete, aggs[0].Status)
	assert.Equal(t, 100, aggs[0].RowsIn)
	assert.Equal(t, 40, aggs[0].RowsOut)
	assert.Equal(t, 3, aggs[0].Skipped)
	require.NotNil(t, aggs[0].FinishedAt)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "insufficient_data")
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.FinishRun(context.Background(), "missing", model.RunResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}
