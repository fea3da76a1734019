package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

type mockRuns struct {
	runs    []model.Run
	listErr error
}

func (m *mockRuns) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Run
	for _, r := range m.runs {
		if filter.Stage != "" && r.Stage != filter.Stage {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func TestCollector_Collect(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	at := func(ago time.Duration) time.Time { return now.Add(-ago) }
	done := func(start time.Time, d time.Duration) *time.Time {
		f := start.Add(d)
		return &f
	}

	s1, s2 := at(2*time.Hour), at(time.Hour)
	runs := &mockRuns{runs: []model.Run{
		{Stage: model.StageAggregate, Status: model.RunStatusComplete, RowsIn: 100, Skipped: 10, StartedAt: s1, FinishedAt: done(s1, 2*time.Second)},
		{Stage: model.StageAggregate, Status: model.RunStatusComplete, RowsIn: 100, Skipped: 30, StartedAt: s2, FinishedAt: done(s2, 4*time.Second)},
		{Stage: model.StageAggregate, Status: model.RunStatusFailed, StartedAt: at(30 * time.Minute)},
		{Stage: model.StageCluster, Status: model.RunStatusRunning, StartedAt: at(10 * time.Hour)},
		{Stage: model.StageCluster, Status: model.RunStatusRunning, StartedAt: at(time.Minute)},
		// Outside the lookback window.
		{Stage: model.StageIngest, Status: model.RunStatusFailed, StartedAt: at(48 * time.Hour)},
	}}

	c := NewCollector(runs, 6*time.Hour)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 24, snap.LookbackHours)
	require.Len(t, snap.Stages, 2)
	assert.Equal(t, model.StageAggregate, snap.Stages[0].Stage)
	assert.Nil(t, snap.Stage(model.StageIngest))

	agg := snap.Stage(model.StageAggregate)
	require.NotNil(t, agg)
	assert.Equal(t, 3, agg.Total)
	assert.Equal(t, 2, agg.Complete)
	assert.Equal(t, 1, agg.Failed)
	assert.InDelta(t, 1.0/3.0, agg.FailRate, 1e-9)
	assert.InDelta(t, 0.2, agg.SkipRate, 1e-9)
	assert.Equal(t, 3*time.Second, agg.AvgDuration)

	cl := snap.Stage(model.StageCluster)
	require.NotNil(t, cl)
	assert.Equal(t, 2, cl.Running)
	assert.Equal(t, 1, cl.Stale)
	assert.Zero(t, cl.FailRate)
}

func TestCollector_ListError(t *testing.T) {
	c := NewCollector(&mockRuns{listErr: errors.New("db down")}, time.Hour)
	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

func TestCollector_SQLiteStore(t *testing.T) {
	st, err := store.NewSQLite(t.TempDir() + "/runs.db")
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, model.StageFeatures)
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, run.ID, model.RunResult{RowsIn: 12, RowsOut: 12}))

	snap, err := NewCollector(st, time.Hour).Collect(ctx, 1)
	require.NoError(t, err)
	f := snap.Stage(model.StageFeatures)
	require.NotNil(t, f)
	assert.Equal(t, 1, f.Complete)
	assert.Equal(t, 12, f.RowsIn)
}
