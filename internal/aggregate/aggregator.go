// Package aggregate reduces raw review events into per-business statistics
// and merges them with business metadata into the stage-1 dataset.
package aggregate

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/stats"
)

// Aggregator accumulates review ratings per business. The zero value is not
// usable; call New.
type Aggregator struct {
	byID    map[string]*model.ReviewAggregate
	skipped int
	seen    int
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{byID: make(map[string]*model.ReviewAggregate)}
}

// Add folds one review event into the aggregate. Events with a blank business
// id or an unusable rating are skipped and counted; Add reports whether the
// event was kept.
func (a *Aggregator) Add(businessID string, stars any) bool {
	a.seen++
	businessID = strings.TrimSpace(businessID)
	rating, ok := ParseRating(stars)
	if businessID == "" || !ok {
		a.skipped++
		return false
	}

	agg, found := a.byID[businessID]
	if !found {
		agg = &model.ReviewAggregate{BusinessID: businessID}
		a.byID[businessID] = agg
	}
	agg.StarsSum += rating
	agg.StarsCount++
	agg.ReviewCount++
	return true
}

// AddReview folds a review document into the aggregate.
func (a *Aggregator) AddReview(r model.Review) bool {
	return a.Add(r.BusinessID, r.Stars)
}

// Seen returns the number of events offered to Add.
func (a *Aggregator) Seen() int { return a.seen }

// Skipped returns the number of events rejected by Add.
func (a *Aggregator) Skipped() int { return a.skipped }

// Results returns one aggregate per business with at least one qualifying
// review, sorted by business id. StarsAvg is rounded to 3 decimal places.
func (a *Aggregator) Results() []model.ReviewAggregate {
	out := make([]model.ReviewAggregate, 0, len(a.byID))
	for _, agg := range a.byID {
		if agg.StarsCount == 0 {
			continue
		}
		r := *agg
		r.StarsAvg = stats.Round(r.StarsSum/float64(r.StarsCount), 3)
		out = append(out, r)
	}
	slices.SortFunc(out, func(x, y model.ReviewAggregate) int {
		return strings.Compare(x.BusinessID, y.BusinessID)
	})
	return out
}

// ParseRating converts a loosely typed rating into a float. Null, non-numeric,
// non-finite and negative values are rejected.
func ParseRating(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case *float64:
		if t == nil {
			return 0, false
		}
		f = *t
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}
