package aggregate

import (
	"slices"
	"strings"

	"github.com/sells-group/reviewpower/internal/model"
)

// DefaultMinReviews is the minimum review count a merged business must have.
const DefaultMinReviews = 10

// MergeResult is the outcome of joining business metadata with review aggregates.
type MergeResult struct {
	Rows         []model.Business
	Matched      int // rows that took their statistics from an aggregate
	BelowMinimum int // rows dropped by the review-count floor
	Duplicates   int // repeated business ids ignored after the first
}

// KeepOpen reports whether a business document qualifies for the merge:
// it needs an id, at least one review and must be open.
func KeepOpen(b model.RawBusiness) bool {
	return strings.TrimSpace(b.BusinessID) != "" && b.ReviewCount > 0 && b.IsOpen == 1
}

// Merge left-joins businesses with aggregates on business id. When an
// aggregate exists its review count and mean replace the metadata values;
// otherwise the metadata review_count and stars are kept. Rows below
// minReviews are dropped. Output is sorted by business id.
func Merge(businesses []model.RawBusiness, aggs []model.ReviewAggregate, minReviews int) MergeResult {
	index := make(map[string]model.ReviewAggregate, len(aggs))
	for _, a := range aggs {
		index[a.BusinessID] = a
	}

	var res MergeResult
	seen := make(map[string]struct{}, len(businesses))
	rows := make([]model.Business, 0, len(businesses))
	for _, b := range businesses {
		id := strings.TrimSpace(b.BusinessID)
		if _, dup := seen[id]; dup {
			res.Duplicates++
			continue
		}
		seen[id] = struct{}{}

		row := model.Business{
			BusinessID:  id,
			Name:        b.Name,
			City:        NormalizeCity(b.City),
			State:       b.State,
			Longitude:   b.Longitude,
			Latitude:    b.Latitude,
			Categories:  b.Categories,
			Stars:       b.Stars,
			StarsAvg:    b.Stars,
			ReviewCount: b.ReviewCount,
		}
		if agg, ok := index[id]; ok {
			row.StarsAvg = agg.StarsAvg
			row.ReviewCount = agg.ReviewCount
			res.Matched++
		}

		if row.ReviewCount < minReviews {
			res.BelowMinimum++
			continue
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(x, y model.Business) int {
		return strings.Compare(x.BusinessID, y.BusinessID)
	})
	res.Rows = rows
	return res
}
