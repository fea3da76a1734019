// Package segment builds the dashboard's views of a classified dataset:
// filtering, overview metrics, top lists, sector counts and chart series.
// Every function is pure; the full dataset is never modified.
package segment

import (
	"slices"
	"strings"

	"github.com/sells-group/reviewpower/internal/model"
)

// Filter narrows the dataset. Empty fields match everything.
type Filter struct {
	State    string `json:"state,omitempty"`
	City     string `json:"city,omitempty"`
	Category string `json:"category,omitempty"`
}

// Match reports whether r passes every set criterion.
func (f Filter) Match(r *model.BusinessRecord) bool {
	if f.State != "" && r.State != f.State {
		return false
	}
	if f.City != "" && r.City != f.City {
		return false
	}
	if f.Category != "" && !slices.Contains(r.CategoryList(), f.Category) {
		return false
	}
	return true
}

// Apply returns the rows matching f. State, city and category are applied
// together against the full dataset on every call.
func Apply(full []model.BusinessRecord, f Filter) []model.BusinessRecord {
	out := make([]model.BusinessRecord, 0, len(full))
	for i := range full {
		if f.Match(&full[i]) {
			out = append(out, full[i])
		}
	}
	return out
}

// Options lists the values a user can pick for each filter.
type Options struct {
	States     []string `json:"states"`
	Cities     []string `json:"cities"`
	Categories []string `json:"categories"`
}

// FilterOptions computes the choices offered for the current selection:
// every state; the cities of the chosen state (none until a state is
// chosen); and the categories of the rows visible under state and city.
func FilterOptions(full []model.BusinessRecord, state, city string) Options {
	opts := Options{States: distinct(full, func(r *model.BusinessRecord) []string { return []string{r.State} })}

	if state == "" {
		city = ""
	} else {
		inState := Apply(full, Filter{State: state})
		opts.Cities = distinct(inState, func(r *model.BusinessRecord) []string { return []string{r.City} })
	}

	visible := Apply(full, Filter{State: state, City: city})
	opts.Categories = distinct(visible, func(r *model.BusinessRecord) []string { return r.CategoryList() })
	return opts
}

func distinct(rows []model.BusinessRecord, values func(*model.BusinessRecord) []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range rows {
		for _, v := range values(&rows[i]) {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out
}
