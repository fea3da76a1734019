package segment

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/stats"
)

// DefaultTopN is the size of the top-RPS lists.
const DefaultTopN = 10

// Overview holds the headline metrics of a dataset.
type Overview struct {
	Businesses      int     `json:"businesses"`
	MeanRating      float64 `json:"mean_rating"`
	MeanReviewCount float64 `json:"mean_review_count"`
	MeanRPS         float64 `json:"mean_review_power_score"`
}

// Summarize computes the overview metrics. Means are 0 for an empty dataset.
func Summarize(rows []model.BusinessRecord) Overview {
	o := Overview{Businesses: len(rows)}
	if len(rows) == 0 {
		return o
	}
	ratings := make([]float64, len(rows))
	reviews := make([]float64, len(rows))
	rps := make([]float64, len(rows))
	for i := range rows {
		ratings[i] = rows[i].Rating()
		reviews[i] = float64(rows[i].ReviewCount)
		rps[i] = rows[i].ReviewPowerScore
	}
	o.MeanRating = stats.Mean(ratings)
	o.MeanReviewCount = stats.Mean(reviews)
	o.MeanRPS = stats.Mean(rps)
	return o
}

// TopByRPS returns up to n rows with the highest review power score.
// Ties are broken by business id.
func TopByRPS(rows []model.BusinessRecord, n int) []model.BusinessRecord {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b model.BusinessRecord) int {
		if c := cmp.Compare(b.ReviewPowerScore, a.ReviewPowerScore); c != 0 {
			return c
		}
		return strings.Compare(a.BusinessID, b.BusinessID)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SectorCount is a legend entry.
type SectorCount struct {
	Sector model.Sector `json:"sector"`
	Label  string       `json:"label"`
	Color  string       `json:"color"`
	Count  int          `json:"count"`
}

// CountSectors tallies rows per sector in legend order, including empty sectors.
func CountSectors(rows []model.BusinessRecord) []SectorCount {
	counts := make(map[model.Sector]int, len(model.Sectors))
	for i := range rows {
		counts[rows[i].Sector]++
	}
	out := make([]SectorCount, len(model.Sectors))
	for i, s := range model.Sectors {
		out[i] = SectorCount{Sector: s, Label: s.Label(), Color: s.Color(), Count: counts[s]}
	}
	return out
}

// SectorTotals is CountSectors as a map.
func SectorTotals(rows []model.BusinessRecord) map[model.Sector]int {
	out := make(map[model.Sector]int, len(model.Sectors))
	for _, c := range CountSectors(rows) {
		out[c.Sector] = c.Count
	}
	return out
}

// Bucket is one bar of a distribution chart.
type Bucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// StarDistribution counts businesses per distinct raw star value, ascending.
func StarDistribution(rows []model.BusinessRecord) []Bucket {
	counts := make(map[float64]int)
	for i := range rows {
		counts[rows[i].Stars]++
	}
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Bucket, len(keys))
	for i, k := range keys {
		out[i] = Bucket{Low: k, High: k, Count: counts[k]}
	}
	return out
}

// MaxHistogramBins caps the number of bins RPSHistogram produces.
const MaxHistogramBins = 200

// RPSHistogram splits the RPS range into at most maxBins equal-width bins.
// maxBins is capped at MaxHistogramBins.
func RPSHistogram(rows []model.BusinessRecord, maxBins int) []Bucket {
	if len(rows) == 0 || maxBins < 1 {
		return nil
	}
	maxBins = min(maxBins, MaxHistogramBins)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range rows {
		lo = math.Min(lo, rows[i].ReviewPowerScore)
		hi = math.Max(hi, rows[i].ReviewPowerScore)
	}
	if hi == lo {
		return []Bucket{{Low: lo, High: hi, Count: len(rows)}}
	}

	width := (hi - lo) / float64(maxBins)
	out := make([]Bucket, maxBins)
	for b := range out {
		out[b].Low = lo + float64(b)*width
		out[b].High = lo + float64(b+1)*width
	}
	out[maxBins-1].High = hi
	for i := range rows {
		b := int((rows[i].ReviewPowerScore - lo) / width)
		if b >= maxBins {
			b = maxBins - 1
		}
		out[b].Count++
	}
	return out
}

// ScatterPoint is one business on the rating versus review-volume chart.
type ScatterPoint struct {
	BusinessID     string       `json:"business_id"`
	Name           string       `json:"name"`
	LogReviewCount float64      `json:"log_review_count"`
	Rating         float64      `json:"rating"`
	ReviewCount    int          `json:"review_count"`
	RPS            float64      `json:"review_power_score"`
	Sector         model.Sector `json:"sector"`
	Cluster        int          `json:"cluster"`
	ClusterName    string       `json:"cluster_name"`
}

// Scatter maps rows to chart points. The x axis is log10(review_count) - 1,
// so the minimum of 10 reviews sits at the origin.
func Scatter(rows []model.BusinessRecord, clusterName func(int) string) []ScatterPoint {
	out := make([]ScatterPoint, len(rows))
	for i := range rows {
		r := &rows[i]
		p := ScatterPoint{
			BusinessID:     r.BusinessID,
			Name:           r.Name,
			LogReviewCount: math.Log10(float64(r.ReviewCount)) - 1,
			Rating:         r.Rating(),
			ReviewCount:    r.ReviewCount,
			RPS:            r.ReviewPowerScore,
			Sector:         r.Sector,
			Cluster:        r.Cluster,
		}
		if clusterName != nil {
			p.ClusterName = clusterName(r.Cluster)
		}
		out[i] = p
	}
	return out
}
