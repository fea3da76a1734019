package cluster

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/stats"
)

// Scaler standardizes columns to zero mean and unit population variance.
// Columns with zero variance are only centered.
type Scaler struct {
	Mean []float64 `json:"mean" yaml:"mean"`
	Std  []float64 `json:"std" yaml:"std"`
}

// FitScaler learns per-column mean and deviation from X.
func FitScaler(X [][]float64) (Scaler, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return Scaler{}, eris.New("cluster: fit scaler on empty matrix")
	}
	cols := len(X[0])
	s := Scaler{Mean: make([]float64, cols), Std: make([]float64, cols)}
	col := make([]float64, len(X))
	for j := range cols {
		for i, row := range X {
			col[i] = row[j]
		}
		s.Mean[j] = stats.Mean(col)
		s.Std[j] = stats.Std(col)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s, nil
}

// Transform returns a standardized copy of X.
func (s Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out
}

// Inverse maps a standardized point back to original units.
func (s Scaler) Inverse(p []float64) []float64 {
	out := make([]float64, len(p))
	for j, v := range p {
		out[j] = v*s.Std[j] + s.Mean[j]
	}
	return out
}
