package model

// Sector is the qualitative classification label of a business. The string
// values are a stable contract with the dashboard.
type Sector string

const (
	SectorBestPerceivedQuality Sector = "best_perceived_quality"
	SectorBestRated            Sector = "best_rated"
	SectorOverrated            Sector = "overrated"
	SectorBadBusiness          Sector = "bad_business"
	SectorWorstRated           Sector = "worst_rated"
	SectorOthers               Sector = "others"
)

// Sectors lists every sector in legend order.
var Sectors = []Sector{
	SectorBestPerceivedQuality,
	SectorBestRated,
	SectorOverrated,
	SectorBadBusiness,
	SectorWorstRated,
	SectorOthers,
}

var sectorLabels = map[Sector]string{
	SectorBestPerceivedQuality: "Best perceived quality (RPS)",
	SectorBestRated:            "Best rated",
	SectorOverrated:            "Overrated",
	SectorBadBusiness:          "Bad business",
	SectorWorstRated:           "Worst rated",
	SectorOthers:               "Others",
}

var sectorColors = map[Sector]string{
	SectorBestPerceivedQuality: "#4CAF50",
	SectorBestRated:            "#1E88E5",
	SectorOverrated:            "#FF9800",
	SectorBadBusiness:          "#E53935",
	SectorWorstRated:           "#6D4C41",
	SectorOthers:               "#9E9E9E",
}

// Valid reports whether s is one of the known sectors.
func (s Sector) Valid() bool {
	_, ok := sectorLabels[s]
	return ok
}

// Label returns the human-readable display name.
func (s Sector) Label() string {
	if l, ok := sectorLabels[s]; ok {
		return l
	}
	return sectorLabels[SectorOthers]
}

// Color returns the hex color used for the sector in charts.
func (s Sector) Color() string {
	if c, ok := sectorColors[s]; ok {
		return c
	}
	return sectorColors[SectorOthers]
}
