package trust

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers features to zero mean and unit variance. Fit on
// training data only; Transform applies the fitted parameters everywhere
// else.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit computes per-column mean and standard deviation over the sample rows.
func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("scaler fit requires at least one row")
	}

	cols := len(rows[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	column := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			if len(row) != cols {
				return fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
			}
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		s.Mean[j] = mean
		if std == 0 || len(rows) == 1 {
			// Constant columns pass through unscaled.
			std = 1
		}
		s.Std[j] = std
	}
	return nil
}

// Transform scales a single vector using the fitted parameters.
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(s.Mean) == 0 {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("vector has %d columns, scaler fitted on %d", len(row), len(s.Mean))
	}

	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll scales a batch of vectors.
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
