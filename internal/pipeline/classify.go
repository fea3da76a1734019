package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/classify"
	"github.com/sells-group/reviewpower/internal/cluster"
	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/segment"
)

// Classify computes thresholds over the full featured dataset, fits the
// clusters and assigns each row its sector. Thresholds are fixed before any
// row is classified.
func Classify(rows []model.FeaturedBusiness, opts Options) (*ClusterOutput, error) {
	thresholds, err := classify.ComputeThresholds(rows, opts.QualityMinRating)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: thresholds")
	}

	fit, err := cluster.Fit(rows, opts.Cluster)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: cluster")
	}

	classifier := classify.NewClassifier(classify.DefaultCascade(), thresholds)
	records := make([]model.BusinessRecord, len(rows))
	for i := range rows {
		records[i] = model.BusinessRecord{
			FeaturedBusiness: rows[i],
			Cluster:          fit.Labels[i],
			Sector:           classifier.Classify(&rows[i]),
		}
	}

	return &ClusterOutput{
		Records: records,
		Report: &dataset.Report{
			Rows:         len(records),
			Thresholds:   thresholds,
			Clustering:   opts.Cluster,
			Clusters:     fit,
			SectorCounts: segment.SectorTotals(records),
		},
	}, nil
}
