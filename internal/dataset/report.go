package dataset

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/reviewpower/internal/classify"
	"github.com/sells-group/reviewpower/internal/cluster"
	"github.com/sells-group/reviewpower/internal/model"
)

// Report summarizes one cluster-and-classify run.
type Report struct {
	RunID        string               `yaml:"run_id"`
	GeneratedAt  time.Time            `yaml:"generated_at"`
	Rows         int                  `yaml:"rows"`
	Thresholds   classify.Thresholds  `yaml:"thresholds"`
	Clustering   cluster.Config       `yaml:"clustering"`
	Clusters     *cluster.Result      `yaml:"clusters"`
	SectorCounts map[model.Sector]int `yaml:"sector_counts"`
}

// WriteReport marshals r as YAML to path.
func WriteReport(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "dataset: marshal report")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "dataset: write report %s", path)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read report %s", path)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "dataset: unmarshal report")
	}
	return &r, nil
}
