// Package pipeline chains the aggregate, features and cluster stages. Each
// stage reads the previous stage's CSV from the data directory and writes
// its own, so stages can be re-run independently.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/aggregate"
	"github.com/sells-group/reviewpower/internal/classify"
	"github.com/sells-group/reviewpower/internal/cluster"
	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

// Options are the run-scoped pipeline parameters.
type Options struct {
	DataDir          string
	MinReviews       int
	QualityMinRating float64
	Cluster          cluster.Config
}

// DefaultOptions returns the standard parameters writing to dataDir.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:          dataDir,
		MinReviews:       aggregate.DefaultMinReviews,
		QualityMinRating: classify.DefaultQualityMinRating,
		Cluster:          cluster.DefaultConfig(),
	}
}

// Pipeline runs stages over the files in Options.DataDir. When a store is
// set, every stage is recorded as a run and the cluster stage persists the
// output dataset.
type Pipeline struct {
	opts  Options
	store store.Store
}

// New creates a Pipeline. st may be nil.
func New(opts Options, st store.Store) *Pipeline {
	return &Pipeline{opts: opts, store: st}
}

// Path returns the location of a stage file in the data directory.
func (p *Pipeline) Path(name string) string {
	return filepath.Join(p.opts.DataDir, name)
}

// trackStage times fn, logs its outcome and records it in the store.
func (p *Pipeline) trackStage(ctx context.Context, stage model.Stage, fn func(runID string) (model.RunResult, error)) (string, error) {
	log := zap.L().With(zap.String("stage", string(stage)))
	log.Info("pipeline: stage starting")

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, stage)
		if err != nil {
			return "", eris.Wrapf(err, "pipeline: create %s run", stage)
		}
		runID = run.ID
		log = log.With(zap.String("run_id", runID))
	}

	start := time.Now()
	result, err := fn(runID)
	result.Err = err
	duration := time.Since(start)

	if err != nil {
		log.Error("pipeline: stage failed", zap.Duration("duration", duration), zap.Error(err))
	} else {
		log.Info("pipeline: stage complete",
			zap.Duration("duration", duration),
			zap.Int("rows_in", result.RowsIn),
			zap.Int("rows_out", result.RowsOut),
			zap.Int("skipped", result.Skipped),
		)
	}

	if p.store != nil {
		if finishErr := p.store.FinishRun(ctx, runID, result); finishErr != nil {
			log.Warn("pipeline: failed to record run", zap.Error(finishErr))
		}
	}
	return runID, err
}

// Run executes aggregate, features and cluster in order.
func (p *Pipeline) Run(ctx context.Context, src Source) (*dataset.Report, error) {
	if _, err := p.Aggregate(ctx, src); err != nil {
		return nil, err
	}
	if _, err := p.Features(ctx); err != nil {
		return nil, err
	}
	out, err := p.Cluster(ctx)
	if err != nil {
		return nil, err
	}
	return out.Report, nil
}
