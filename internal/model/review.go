package model

import "strings"

// Review is a review document as ingested from the source feed. Stars stays
// untyped so that null and malformed ratings survive decoding and can be
// filtered by the aggregator.
type Review struct {
	ReviewID   string `json:"review_id"`
	BusinessID string `json:"business_id"`
	UserID     string `json:"user_id"`
	Stars      any    `json:"stars"`
	Useful     int    `json:"useful"`
	Funny      int    `json:"funny"`
	Cool       int    `json:"cool"`
	Date       string `json:"date"`
}

// ReviewAggregate holds per-business review statistics.
type ReviewAggregate struct {
	BusinessID  string  `json:"business_id"`
	StarsSum    float64 `json:"stars_sum"`
	StarsCount  int     `json:"stars_count"`
	ReviewCount int     `json:"review_count"`
	StarsAvg    float64 `json:"stars_avg"`
}

// SplitCategories splits a comma-joined category string.
func SplitCategories(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
