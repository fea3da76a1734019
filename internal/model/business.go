// Package model holds the record types that flow through the review-power
// pipeline, from ingested documents to the classified output dataset.
package model

// RawBusiness is a business document as ingested from the source feed.
// City is kept untyped because the feed occasionally carries non-string values.
type RawBusiness struct {
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	City        any     `json:"city"`
	State       string  `json:"state"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Categories  string  `json:"categories"`
	Stars       float64 `json:"stars"`
	ReviewCount int     `json:"review_count"`
	IsOpen      int     `json:"is_open"`
}

// Business is the stage-1 row: business metadata merged with review aggregates.
// Field order matches the reviews_business.csv column contract.
type Business struct {
	BusinessID  string  `csv:"business_id" json:"business_id"`
	Name        string  `csv:"name" json:"name"`
	City        string  `csv:"city" json:"city"`
	State       string  `csv:"state" json:"state"`
	Longitude   float64 `csv:"longitude" json:"longitude"`
	Latitude    float64 `csv:"latitude" json:"latitude"`
	Categories  string  `csv:"categories" json:"categories"`
	Stars       float64 `csv:"stars" json:"stars"`
	StarsAvg    float64 `csv:"stars_avg" json:"stars_avg"`
	ReviewCount int     `csv:"review_count" json:"review_count"`
}

// FeaturedBusiness is the stage-2 row: a Business with its review power score.
type FeaturedBusiness struct {
	Business
	ReviewPowerScore float64 `csv:"review_power_score" json:"review_power_score"`
}

// BusinessRecord is a row of the output dataset consumed by the dashboard.
type BusinessRecord struct {
	FeaturedBusiness
	Cluster int    `csv:"cluster" json:"cluster"`
	Sector  Sector `csv:"sector" json:"sector"`
}

// Rating is the aggregated rating used for classification and display.
func (b *Business) Rating() float64 {
	return b.StarsAvg
}

// CategoryList splits the comma-joined categories into trimmed, non-empty names.
func (b *Business) CategoryList() []string {
	return SplitCategories(b.Categories)
}
