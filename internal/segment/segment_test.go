package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reviewpower/internal/model"
)

func rec(id, state, city, cats string, stars float64, reviews int, rps float64, sector model.Sector) model.BusinessRecord {
	return model.BusinessRecord{
		FeaturedBusiness: model.FeaturedBusiness{
			Business: model.Business{
				BusinessID:  id,
				Name:        "Biz " + id,
				City:        city,
				State:       state,
				Categories:  cats,
				Stars:       stars,
				StarsAvg:    stars,
				ReviewCount: reviews,
			},
			ReviewPowerScore: rps,
		},
		Sector: sector,
	}
}

func fixture() []model.BusinessRecord {
	return []model.BusinessRecord{
		rec("a", "PA", "Philadelphia", "Restaurants, Pizza", 4.5, 100, 20.8, model.SectorBestPerceivedQuality),
		rec("b", "PA", "Pittsburgh", "Bars, Nightlife", 3.0, 10, 7.2, model.SectorOthers),
		rec("c", "FL", "Tampa", "Restaurants", 2.0, 40, 7.4, model.SectorWorstRated),
		rec("d", "PA", "Philadelphia", "Pizza Delivery", 5.0, 12, 12.8, model.SectorOverrated),
	}
}

func ids(rows []model.BusinessRecord) []string {
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].BusinessID
	}
	return out
}

func TestApply(t *testing.T) {
	full := fixture()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"a", "b", "c", "d"}},
		{"state", Filter{State: "PA"}, []string{"a", "b", "d"}},
		{"state and city", Filter{State: "PA", City: "Philadelphia"}, []string{"a", "d"}},
		{"category exact token", Filter{Category: "Pizza"}, []string{"a"}},
		{"all three", Filter{State: "FL", City: "Tampa", Category: "Restaurants"}, []string{"c"}},
		{"no match", Filter{State: "NV"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(full, tt.filter)))
		})
	}

	assert.Len(t, full, 4, "full dataset untouched")
}

func TestApply_FromScratch(t *testing.T) {
	full := fixture()
	narrow := Apply(full, Filter{State: "FL"})
	require.Len(t, narrow, 1)

	// Widening again starts from the full dataset, not the previous view.
	assert.Len(t, Apply(full, Filter{State: "PA"}), 3)
}

func TestFilterOptions(t *testing.T) {
	full := fixture()

	t.Run("no state hides cities", func(t *testing.T) {
		o := FilterOptions(full, "", "Tampa")
		assert.Equal(t, []string{"FL", "PA"}, o.States)
		assert.Empty(t, o.Cities)
		assert.Equal(t, []string{"Bars", "Nightlife", "Pizza", "Pizza Delivery", "Restaurants"}, o.Categories)
	})

	t.Run("state narrows cities and categories", func(t *testing.T) {
		o := FilterOptions(full, "PA", "")
		assert.Equal(t, []string{"Philadelphia", "Pittsburgh"}, o.Cities)
		assert.Equal(t, []string{"Bars", "Nightlife", "Pizza", "Pizza Delivery", "Restaurants"}, o.Categories)
	})

	t.Run("city narrows categories", func(t *testing.T) {
		o := FilterOptions(full, "PA", "Pittsburgh")
		assert.Equal(t, []string{"Bars", "Nightlife"}, o.Categories)
	})
}

func TestSummarize(t *testing.T) {
	o := Summarize(fixture())
	assert.Equal(t, 4, o.Businesses)
	assert.InDelta(t, 3.625, o.MeanRating, 1e-9)
	assert.InDelta(t, 40.5, o.MeanReviewCount, 1e-9)
	assert.InDelta(t, 12.05, o.MeanRPS, 1e-9)

	assert.Equal(t, Overview{}, Summarize(nil))
}

func TestTopByRPS(t *testing.T) {
	full := fixture()
	assert.Equal(t, []string{"a", "d"}, ids(TopByRPS(full, 2)))
	assert.Equal(t, []string{"a", "d", "c", "b"}, ids(TopByRPS(full, DefaultTopN)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(full), "input order kept")

	tied := []model.BusinessRecord{
		rec("z", "PA", "X", "", 4, 10, 5, model.SectorOthers),
		rec("y", "PA", "X", "", 4, 10, 5, model.SectorOthers),
	}
	assert.Equal(t, []string{"y", "z"}, ids(TopByRPS(tied, 10)))
}

func TestCountSectors(t *testing.T) {
	counts := CountSectors(fixture())
	require.Len(t, counts, len(model.Sectors))
	for i, c := range counts {
		assert.Equal(t, model.Sectors[i], c.Sector)
		assert.Equal(t, c.Sector.Label(), c.Label)
		assert.Equal(t, c.Sector.Color(), c.Color)
	}
	totals := SectorTotals(fixture())
	assert.Equal(t, 1, totals[model.SectorBestPerceivedQuality])
	assert.Equal(t, 0, totals[model.SectorBestRated])
	assert.Equal(t, 1, totals[model.SectorOthers])
}

func TestStarDistribution(t *testing.T) {
	got := StarDistribution(fixture())
	require.Len(t, got, 4)
	assert.Equal(t, 2.0, got[0].Low)
	assert.Equal(t, 5.0, got[3].Low)
	for _, b := range got {
		assert.Equal(t, 1, b.Count)
	}
}

func TestRPSHistogram(t *testing.T) {
	rows := []model.BusinessRecord{
		rec("a", "", "", "", 0, 10, 0, model.SectorOthers),
		rec("b", "", "", "", 0, 10, 5, model.SectorOthers),
		rec("c", "", "", "", 0, 10, 10, model.SectorOthers),
		rec("d", "", "", "", 0, 10, 9.9, model.SectorOthers),
	}
	bins := RPSHistogram(rows, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 3, bins[1].Count)
	assert.Equal(t, 10.0, bins[1].High)

	assert.Nil(t, RPSHistogram(nil, 5))

	flat := RPSHistogram(rows[:1], 5)
	require.Len(t, flat, 1)
	assert.Equal(t, 1, flat[0].Count)
}

func TestRPSHistogram_CapsBins(t *testing.T) {
	rows := []model.BusinessRecord{
		rec("a", "", "", "", 0, 10, 0, model.SectorOthers),
		rec("b", "", "", "", 0, 10, 10, model.SectorOthers),
	}
	bins := RPSHistogram(rows, math.MaxInt32)
	require.Len(t, bins, MaxHistogramBins)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[MaxHistogramBins-1].Count)
}

func TestScatter(t *testing.T) {
	pts := Scatter(fixture(), func(int) string { return "Few reviews, high rating" })
	require.Len(t, pts, 4)
	assert.InDelta(t, 1.0, pts[0].LogReviewCount, 1e-9)
	assert.InDelta(t, 0.0, pts[1].LogReviewCount, 1e-9)
	assert.Equal(t, "Few reviews, high rating", pts[0].ClusterName)
}

func TestBuildMapView(t *testing.T) {
	rows := fixture()
	rows[0].Latitude, rows[0].Longitude = 40, -75
	rows[1].Latitude, rows[1].Longitude = 40.5, -80
	rows[2].Latitude, rows[2].Longitude = 28, -82.5
	rows[3].Latitude, rows[3].Longitude = 39.5, -75.5

	v := BuildMapView(rows)
	require.NotNil(t, v)
	assert.InDelta(t, 37.0, v.CenterLat, 1e-9)
	assert.InDelta(t, -78.25, v.CenterLon, 1e-9)
	assert.Equal(t, 28.0, v.MinLat)
	assert.Equal(t, 40.5, v.MaxLat)
	assert.Equal(t, -82.5, v.MinLon)
	assert.Equal(t, -75.0, v.MaxLon)
	assert.Len(t, v.Points, 4)

	assert.Nil(t, BuildMapView(nil))
}
