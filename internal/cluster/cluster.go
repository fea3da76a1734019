// Package cluster groups businesses over standardized (rating, review_count)
// features with seeded k-means and names the groups from their centroids.
package cluster

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/fault"
	"github.com/sells-group/reviewpower/internal/model"
)

// Config controls the clustering run.
type Config struct {
	K         int     `yaml:"k"`
	Seed      uint64  `yaml:"seed"`
	MaxIter   int     `yaml:"max_iter"`
	NInit     int     `yaml:"n_init"`
	Tolerance float64 `yaml:"tolerance"`
}

// DefaultConfig returns k=4 with seed 42.
func DefaultConfig() Config {
	return Config{K: 4, Seed: 42, MaxIter: 300, NInit: 10, Tolerance: 1e-4}
}

// Profile describes one fitted cluster in original units.
type Profile struct {
	Label       int     `json:"label" yaml:"label"`
	Name        string  `json:"name" yaml:"name"`
	Color       string  `json:"color" yaml:"color"`
	Size        int     `json:"size" yaml:"size"`
	Stars       float64 `json:"centroid_stars" yaml:"centroid_stars"`
	ReviewCount float64 `json:"centroid_review_count" yaml:"centroid_review_count"`
	MeanRating  float64 `json:"mean_rating" yaml:"mean_rating"`
	MeanRPS     float64 `json:"mean_rps" yaml:"mean_rps"`
}

// Result is a fitted clustering of a dataset.
type Result struct {
	Labels     []int     `json:"-" yaml:"-"`
	Scaler     Scaler    `json:"scaler" yaml:"scaler"`
	Inertia    float64   `json:"inertia" yaml:"inertia"`
	Iterations int       `json:"iterations" yaml:"iterations"`
	Profiles   []Profile `json:"profiles" yaml:"profiles"`
}

// Name returns the human-readable name of a cluster label.
func (r *Result) Name(label int) string {
	if label < 0 || label >= len(r.Profiles) {
		return "Others"
	}
	return r.Profiles[label].Name
}

// Features returns the (stars, review_count) matrix clustered by Fit.
func Features(rows []model.FeaturedBusiness) [][]float64 {
	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = []float64{r.Stars, float64(r.ReviewCount)}
	}
	return X
}

// Fit standardizes the features of rows, runs k-means and profiles the
// resulting clusters. Labels are aligned with rows.
func Fit(rows []model.FeaturedBusiness, cfg Config) (*Result, error) {
	X := Features(rows)
	if cfg.K < 1 {
		return nil, eris.Wrap(fault.InvalidInput("k must be >= 1, got %d", cfg.K), "cluster: fit")
	}
	if distinct := countDistinct(X); distinct < cfg.K {
		return nil, eris.Wrap(fault.InsufficientData("k-means needs %d distinct points, have %d", cfg.K, distinct), "cluster: fit")
	}

	scaler, err := FitScaler(X)
	if err != nil {
		return nil, err
	}
	Z := scaler.Transform(X)
	km := &KMeans{K: cfg.K, MaxIter: cfg.MaxIter, NInit: cfg.NInit, Tolerance: cfg.Tolerance, Seed: cfg.Seed}
	if err := km.Fit(Z); err != nil {
		return nil, eris.Wrap(err, "cluster: fit")
	}

	res := &Result{
		Labels:     km.Labels,
		Scaler:     scaler,
		Inertia:    km.Inertia,
		Iterations: km.Iterations,
		Profiles:   profile(rows, km, scaler),
	}
	return res, nil
}

func profile(rows []model.FeaturedBusiness, km *KMeans, scaler Scaler) []Profile {
	names := NameCentroids(km.Centroids)
	profiles := make([]Profile, km.K)
	ratingSum := make([]float64, km.K)
	rpsSum := make([]float64, km.K)
	for i, label := range km.Labels {
		profiles[label].Size++
		ratingSum[label] += rows[i].StarsAvg
		rpsSum[label] += rows[i].ReviewPowerScore
	}
	for c := range km.K {
		orig := scaler.Inverse(km.Centroids[c])
		p := &profiles[c]
		p.Label = c
		p.Name = names[c].Name
		p.Color = names[c].Color
		p.Stars = orig[0]
		p.ReviewCount = orig[1]
		if p.Size > 0 {
			p.MeanRating = ratingSum[c] / float64(p.Size)
			p.MeanRPS = rpsSum[c] / float64(p.Size)
		}
	}
	return profiles
}
