// Package monitoring summarizes recorded stage runs and raises alerts when
// stages fail too often, skip too much input, or are left running.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

// StageStats holds the run counters of one stage within the lookback window.
type StageStats struct {
	Stage       model.Stage   `json:"stage"`
	Total       int           `json:"total"`
	Complete    int           `json:"complete"`
	Failed      int           `json:"failed"`
	Running     int           `json:"running"`
	Stale       int           `json:"stale"`
	FailRate    float64       `json:"fail_rate"`
	RowsIn      int           `json:"rows_in"`
	Skipped     int           `json:"skipped"`
	SkipRate    float64       `json:"skip_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Finished is the number of runs that completed or failed.
func (s *StageStats) Finished() int {
	return s.Complete + s.Failed
}

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	Stages        []StageStats `json:"stages"`
	LookbackHours int          `json:"lookback_hours"`
	CollectedAt   time.Time    `json:"collected_at"`
}

// Stage returns the stats of stage, or nil when it has no runs.
func (m *MetricsSnapshot) Stage(stage model.Stage) *StageStats {
	for i := range m.Stages {
		if m.Stages[i].Stage == stage {
			return &m.Stages[i]
		}
	}
	return nil
}

// RunLister is the part of the store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	store      RunLister
	staleAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a metrics collector. Runs still marked running after
// staleAfter are counted as stale.
func NewCollector(st RunLister, staleAfter time.Duration) *Collector {
	return &Collector{store: st, staleAfter: staleAfter, now: time.Now}
}

var stageOrder = []model.Stage{model.StageIngest, model.StageAggregate, model.StageFeatures, model.StageCluster}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	byStage := make(map[model.Stage]*StageStats)
	durations := make(map[model.Stage]time.Duration)
	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		s, ok := byStage[r.Stage]
		if !ok {
			s = &StageStats{Stage: r.Stage}
			byStage[r.Stage] = s
		}
		s.Total++
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			s.RowsIn += r.RowsIn
			s.Skipped += r.Skipped
			if r.FinishedAt != nil {
				durations[r.Stage] += r.FinishedAt.Sub(r.StartedAt)
			}
		case model.RunStatusFailed:
			s.Failed++
		case model.RunStatusRunning:
			s.Running++
			if c.staleAfter > 0 && now.Sub(r.StartedAt) > c.staleAfter {
				s.Stale++
			}
		}
	}

	for _, stage := range stageOrder {
		s, ok := byStage[stage]
		if !ok {
			continue
		}
		if finished := s.Finished(); finished > 0 {
			s.FailRate = float64(s.Failed) / float64(finished)
		}
		if s.RowsIn > 0 {
			s.SkipRate = float64(s.Skipped) / float64(s.RowsIn)
		}
		if s.Complete > 0 {
			s.AvgDuration = durations[stage] / time.Duration(s.Complete)
		}
		snap.Stages = append(snap.Stages, *s)
	}
	return snap, nil
}
