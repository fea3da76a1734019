package segment

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/reviewpower/internal/model"
)

// MapView positions the dashboard map over a set of businesses.
type MapView struct {
	CenterLat float64    `json:"center_lat"`
	CenterLon float64    `json:"center_lon"`
	MinLat    float64    `json:"min_lat"`
	MinLon    float64    `json:"min_lon"`
	MaxLat    float64    `json:"max_lat"`
	MaxLon    float64    `json:"max_lon"`
	Points    []MapPoint `json:"points"`
}

// MapPoint is one business marker.
type MapPoint struct {
	BusinessID string       `json:"business_id"`
	Name       string       `json:"name"`
	Lat        float64      `json:"lat"`
	Lon        float64      `json:"lon"`
	Sector     model.Sector `json:"sector"`
}

// BuildMapView centers the map on the mean coordinate of rows and reports
// their bounding box. It returns nil for an empty dataset.
func BuildMapView(rows []model.BusinessRecord) *MapView {
	if len(rows) == 0 {
		return nil
	}

	flat := make([]float64, 0, 2*len(rows))
	points := make([]MapPoint, len(rows))
	for i := range rows {
		r := &rows[i]
		flat = append(flat, r.Longitude, r.Latitude)
		points[i] = MapPoint{BusinessID: r.BusinessID, Name: r.Name, Lat: r.Latitude, Lon: r.Longitude, Sector: r.Sector}
	}
	mp := geom.NewMultiPointFlat(geom.XY, flat)

	var sumLon, sumLat float64
	for i := range mp.NumPoints() {
		c := mp.Point(i).Coords()
		sumLon += c.X()
		sumLat += c.Y()
	}
	n := float64(mp.NumPoints())
	b := mp.Bounds()

	return &MapView{
		CenterLat: sumLat / n,
		CenterLon: sumLon / n,
		MinLon:    b.Min(0),
		MinLat:    b.Min(1),
		MaxLon:    b.Max(0),
		MaxLat:    b.Max(1),
		Points:    points,
	}
}
