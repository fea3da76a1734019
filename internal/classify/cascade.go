package classify

import (
	"github.com/sells-group/reviewpower/internal/model"
)

// Rule pairs a sector with the predicate that selects it.
type Rule struct {
	Sector model.Sector
	Match  func(r *model.FeaturedBusiness, t *Thresholds) bool
}

// Cascade is an ordered rule list. The predicates overlap, so order decides
// which label a business gets: the first matching rule wins.
type Cascade []Rule

// DefaultCascade returns the sector rules in evaluation order.
func DefaultCascade() Cascade {
	return Cascade{
		{
			Sector: model.SectorBestPerceivedQuality,
			Match: func(r *model.FeaturedBusiness, t *Thresholds) bool {
				return r.ReviewPowerScore >= t.RPS.P90 && r.Rating() >= t.QualityMinRating
			},
		},
		{
			Sector: model.SectorOverrated,
			Match: func(r *model.FeaturedBusiness, t *Thresholds) bool {
				return float64(r.ReviewCount) <= t.ReviewCount.P25 && r.Rating() >= t.Rating.P80
			},
		},
		{
			Sector: model.SectorBestRated,
			Match: func(r *model.FeaturedBusiness, t *Thresholds) bool {
				return float64(r.ReviewCount) >= t.MeanReviewCount && r.Rating() >= t.Rating.P80
			},
		},
		{
			Sector: model.SectorBadBusiness,
			Match: func(r *model.FeaturedBusiness, t *Thresholds) bool {
				return float64(r.ReviewCount) >= t.ReviewCount.P95 && r.Rating() <= t.Rating.P25
			},
		},
		{
			Sector: model.SectorWorstRated,
			Match: func(r *model.FeaturedBusiness, t *Thresholds) bool {
				return r.Rating() <= t.Rating.P25 && float64(r.ReviewCount) <= t.ReviewCount.P25
			},
		},
	}
}

// Classify returns the sector of the first matching rule, or others.
func (c Cascade) Classify(r *model.FeaturedBusiness, t *Thresholds) model.Sector {
	for _, rule := range c {
		if rule.Match(r, t) {
			return rule.Sector
		}
	}
	return model.SectorOthers
}

// Sectors returns the rule labels in evaluation order.
func (c Cascade) Sectors() []model.Sector {
	out := make([]model.Sector, len(c))
	for i, rule := range c {
		out[i] = rule.Sector
	}
	return out
}

// Classifier binds a cascade to one run's thresholds.
type Classifier struct {
	cascade    Cascade
	thresholds Thresholds
}

// NewClassifier creates a Classifier. The thresholds are copied so later
// changes by the caller cannot leak into classification.
func NewClassifier(c Cascade, t Thresholds) *Classifier {
	return &Classifier{cascade: c, thresholds: t}
}

// Thresholds returns the snapshot the classifier compares against.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Classify labels a single business.
func (c *Classifier) Classify(r *model.FeaturedBusiness) model.Sector {
	return c.cascade.Classify(r, &c.thresholds)
}

// ClassifyAll labels every business, returning sectors aligned with rows.
func (c *Classifier) ClassifyAll(rows []model.FeaturedBusiness) []model.Sector {
	out := make([]model.Sector, len(rows))
	for i := range rows {
		out[i] = c.Classify(&rows[i])
	}
	return out
}
