// Package classify assigns each business a sector by evaluating an ordered
// rule cascade against percentile thresholds of the full dataset.
package classify

import (
	"github.com/sells-group/reviewpower/internal/fault"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/stats"
)

// DefaultQualityMinRating is the rating floor of the best_perceived_quality rule.
const DefaultQualityMinRating = 4.0

// Percentiles holds the quantiles of one metric.
type Percentiles struct {
	P25 float64 `json:"p25" yaml:"p25"`
	P80 float64 `json:"p80" yaml:"p80"`
	P90 float64 `json:"p90" yaml:"p90"`
	P95 float64 `json:"p95" yaml:"p95"`
}

// Thresholds is the run-scoped snapshot of dataset-wide statistics the
// cascade compares against. It is computed once from the full dataset and
// must be reused unchanged for every filtered view.
type Thresholds struct {
	ReviewCount      Percentiles `json:"review_count" yaml:"review_count"`
	Rating           Percentiles `json:"rating" yaml:"rating"`
	RPS              Percentiles `json:"review_power_score" yaml:"review_power_score"`
	MeanReviewCount  float64     `json:"mean_review_count" yaml:"mean_review_count"`
	MeanRPS          float64     `json:"mean_review_power_score" yaml:"mean_review_power_score"`
	QualityMinRating float64     `json:"quality_min_rating" yaml:"quality_min_rating"`
	Rows             int         `json:"rows" yaml:"rows"`
}

// ComputeThresholds derives the threshold snapshot from the complete dataset.
func ComputeThresholds(rows []model.FeaturedBusiness, qualityMinRating float64) (Thresholds, error) {
	if len(rows) == 0 {
		return Thresholds{}, fault.InsufficientData("thresholds need at least one business")
	}

	reviews := make([]float64, len(rows))
	ratings := make([]float64, len(rows))
	rps := make([]float64, len(rows))
	for i, r := range rows {
		reviews[i] = float64(r.ReviewCount)
		ratings[i] = r.Rating()
		rps[i] = r.ReviewPowerScore
	}

	return Thresholds{
		ReviewCount:      percentiles(reviews),
		Rating:           percentiles(ratings),
		RPS:              percentiles(rps),
		MeanReviewCount:  stats.Mean(reviews),
		MeanRPS:          stats.Mean(rps),
		QualityMinRating: qualityMinRating,
		Rows:             len(rows),
	}, nil
}

func percentiles(x []float64) Percentiles {
	q := stats.Quantiles(x, 0.25, 0.80, 0.90, 0.95)
	return Percentiles{P25: q[0], P80: q[1], P90: q[2], P95: q[3]}
}
