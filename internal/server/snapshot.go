package server

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/classify"
	"github.com/sells-group/reviewpower/internal/cluster"
	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
)

// Snapshot is the immutable dataset a server answers from. Thresholds are
// those of the full dataset; filtered views never recompute them.
type Snapshot struct {
	records    []model.BusinessRecord
	thresholds classify.Thresholds
	clusters   *cluster.Result
}

// NewSnapshot builds a snapshot from the classified records. When report is
// nil the thresholds are computed from records with qualityMinRating.
func NewSnapshot(records []model.BusinessRecord, report *dataset.Report, qualityMinRating float64) (*Snapshot, error) {
	s := &Snapshot{records: records}
	if report != nil {
		s.thresholds = report.Thresholds
		s.clusters = report.Clusters
		return s, nil
	}

	featured := make([]model.FeaturedBusiness, len(records))
	for i := range records {
		featured[i] = records[i].FeaturedBusiness
	}
	t, err := classify.ComputeThresholds(featured, qualityMinRating)
	if err != nil {
		return nil, eris.Wrap(err, "server: snapshot thresholds")
	}
	s.thresholds = t
	return s, nil
}

// Records returns the full dataset. Callers must not modify it.
func (s *Snapshot) Records() []model.BusinessRecord { return s.records }

// Thresholds returns the full-dataset thresholds.
func (s *Snapshot) Thresholds() classify.Thresholds { return s.thresholds }

// ClusterName names a cluster label. It is empty when no cluster profiles
// are loaded.
func (s *Snapshot) ClusterName(label int) string {
	if s.clusters == nil {
		return ""
	}
	return s.clusters.Name(label)
}
