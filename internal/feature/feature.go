// Package feature derives the review power score (RPS) from aggregated
// business statistics.
package feature

import (
	"math"

	"github.com/sells-group/reviewpower/internal/fault"
	"github.com/sells-group/reviewpower/internal/model"
)

// ReviewPowerScore returns stars * ln(1 + reviewCount). Log-scaling damps the
// review volume while the rating stays a linear multiplier.
func ReviewPowerScore(stars float64, reviewCount int) (float64, error) {
	if reviewCount < 0 {
		return 0, fault.InvalidInput("review_count must be >= 0, got %d", reviewCount)
	}
	if math.IsNaN(stars) || math.IsInf(stars, 0) || stars < 0 {
		return 0, fault.InvalidInput("stars must be a finite value >= 0, got %v", stars)
	}
	return stars * math.Log1p(float64(reviewCount)), nil
}

// Build scores every business. It fails on the first row that violates the
// numeric preconditions rather than emitting NaN downstream.
func Build(rows []model.Business) ([]model.FeaturedBusiness, error) {
	out := make([]model.FeaturedBusiness, len(rows))
	for i, b := range rows {
		rps, err := ReviewPowerScore(b.Stars, b.ReviewCount)
		if err != nil {
			return nil, fault.InvalidInput("business %q: %v", b.BusinessID, err)
		}
		out[i] = model.FeaturedBusiness{Business: b, ReviewPowerScore: rps}
	}
	return out, nil
}
