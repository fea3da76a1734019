package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/aggregate"
	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/feature"
	"github.com/sells-group/reviewpower/internal/ingest"
	"github.com/sells-group/reviewpower/internal/model"
)

// Source supplies business and review documents to the aggregate stage.
type Source = ingest.Source

// AggregateOutput summarizes the aggregate stage.
type AggregateOutput struct {
	Businesses     int `json:"businesses"`
	Reviews        int `json:"reviews"`
	SkippedReviews int `json:"skipped_reviews"`
	aggregate.MergeResult
}

// BuildMerged aggregates the reviews of src and merges them with its
// businesses. Unusable review events are counted, not reported as errors.
func BuildMerged(ctx context.Context, src Source, minReviews int) (*AggregateOutput, error) {
	businesses, err := src.Businesses(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load businesses")
	}

	agg := aggregate.New()
	err = src.Reviews(ctx, func(r model.Review) error {
		agg.AddReview(r)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load reviews")
	}

	merged := aggregate.Merge(businesses, agg.Results(), minReviews)
	return &AggregateOutput{
		Businesses:     len(businesses),
		Reviews:        agg.Seen(),
		SkippedReviews: agg.Skipped(),
		MergeResult:    merged,
	}, nil
}

// Aggregate runs the aggregate stage and writes the merged dataset.
func (p *Pipeline) Aggregate(ctx context.Context, src Source) (*AggregateOutput, error) {
	var out *AggregateOutput
	_, err := p.trackStage(ctx, model.StageAggregate, func(string) (model.RunResult, error) {
		var err error
		out, err = BuildMerged(ctx, src, p.opts.MinReviews)
		if err != nil {
			return model.RunResult{}, err
		}
		if out.SkippedReviews > 0 {
			zap.L().Warn("pipeline: skipped unusable reviews", zap.Int("skipped", out.SkippedReviews))
		}
		if out.Duplicates > 0 {
			zap.L().Warn("pipeline: ignored duplicate businesses", zap.Int("duplicates", out.Duplicates))
		}
		zap.L().Info("pipeline: merged businesses",
			zap.Int("matched", out.Matched),
			zap.Int("below_minimum", out.BelowMinimum),
		)
		if err := dataset.WriteCSV(p.Path(dataset.MergedFile), out.Rows); err != nil {
			return model.RunResult{}, err
		}
		return model.RunResult{
			RowsIn:  out.Reviews,
			RowsOut: len(out.Rows),
			Skipped: out.SkippedReviews,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Features runs the features stage over the merged dataset.
func (p *Pipeline) Features(ctx context.Context) ([]model.FeaturedBusiness, error) {
	var out []model.FeaturedBusiness
	_, err := p.trackStage(ctx, model.StageFeatures, func(string) (model.RunResult, error) {
		rows, err := dataset.ReadMerged(p.Path(dataset.MergedFile))
		if err != nil {
			return model.RunResult{}, err
		}
		out, err = feature.Build(rows)
		if err != nil {
			return model.RunResult{RowsIn: len(rows)}, eris.Wrap(err, "pipeline: build features")
		}
		if err := dataset.WriteCSV(p.Path(dataset.FeaturedFile), out); err != nil {
			return model.RunResult{RowsIn: len(rows)}, err
		}
		return model.RunResult{RowsIn: len(rows), RowsOut: len(out)}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClusterOutput is the classified dataset with its run report.
type ClusterOutput struct {
	Records []model.BusinessRecord
	Report  *dataset.Report
}

// Cluster runs the cluster stage: thresholds, k-means and the sector
// cascade over the featured dataset. It writes the classified dataset and
// the run report and, with a store, persists the records.
func (p *Pipeline) Cluster(ctx context.Context) (*ClusterOutput, error) {
	var out *ClusterOutput
	_, err := p.trackStage(ctx, model.StageCluster, func(runID string) (model.RunResult, error) {
		rows, err := dataset.ReadFeatured(p.Path(dataset.FeaturedFile))
		if err != nil {
			return model.RunResult{}, err
		}
		res := model.RunResult{RowsIn: len(rows)}

		out, err = Classify(rows, p.opts)
		if err != nil {
			return res, err
		}
		out.Report.RunID = runID
		out.Report.GeneratedAt = time.Now().UTC()

		if err := dataset.WriteCSV(p.Path(dataset.ClusteredFile), out.Records); err != nil {
			return res, err
		}
		if err := dataset.WriteReport(p.Path(dataset.ReportFile), out.Report); err != nil {
			return res, err
		}
		if p.store != nil {
			if _, err := p.store.SaveRecords(ctx, runID, out.Records); err != nil {
				return res, eris.Wrap(err, "pipeline: save records")
			}
		}
		res.RowsOut = len(out.Records)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
