package trust

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RidgeRegressor is a linear model fitted in closed form via the ridge
// normal equations (XᵀX + αI)w = Xᵀy. The intercept column is not
// regularized because inputs are pre-centered by the scaler.
type RidgeRegressor struct {
	Alpha     float64   `json:"alpha"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Fit solves the normal equations over scaled rows.
func (r *RidgeRegressor) Fit(rows [][]float64, targets []float64) error {
	n := len(rows)
	if n == 0 {
		return fmt.Errorf("regressor fit requires at least one row")
	}
	if n != len(targets) {
		return fmt.Errorf("got %d rows but %d targets", n, len(targets))
	}
	p := len(rows[0])

	// Augment with a bias column so the intercept falls out of the solve.
	x := mat.NewDense(n, p+1, nil)
	y := mat.NewVecDense(n, nil)
	for i, row := range rows {
		if len(row) != p {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), p)
		}
		for j, v := range row {
			x.Set(i, j, v)
		}
		x.Set(i, p, 1)
		y.SetVec(i, targets[i])
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 0; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+r.Alpha)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		return fmt.Errorf("ridge solve failed: %w", err)
	}

	r.Weights = make([]float64, p)
	for j := 0; j < p; j++ {
		r.Weights[j] = w.AtVec(j)
	}
	r.Intercept = w.AtVec(p)
	return nil
}

// Predict evaluates the fitted model on one scaled vector.
func (r *RidgeRegressor) Predict(row []float64) (float64, error) {
	if len(r.Weights) == 0 {
		return 0, fmt.Errorf("regressor is not fitted")
	}
	if len(row) != len(r.Weights) {
		return 0, fmt.Errorf("vector has %d columns, model fitted on %d", len(row), len(r.Weights))
	}

	pred := r.Intercept
	for j, v := range row {
		pred += r.Weights[j] * v
	}
	return pred, nil
}

// FeatureImportance normalizes absolute weights so they sum to 1, keyed by
// the canonical feature names.
func (r *RidgeRegressor) FeatureImportance() map[string]float64 {
	importance := make(map[string]float64, FeatureCount)
	var total float64
	for _, w := range r.Weights {
		total += math.Abs(w)
	}
	for j, name := range FeatureNames {
		if j >= len(r.Weights) || total == 0 {
			importance[name] = 0
			continue
		}
		importance[name] = math.Abs(r.Weights[j]) / total
	}
	return importance
}

// Evaluate computes mean squared error and R² over a held-out set.
func (r *RidgeRegressor) Evaluate(rows [][]float64, targets []float64) (mse, r2 float64, err error) {
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("evaluation set is empty")
	}

	preds := make([]float64, len(rows))
	for i, row := range rows {
		p, perr := r.Predict(row)
		if perr != nil {
			return 0, 0, perr
		}
		preds[i] = p
	}

	var sse float64
	for i := range preds {
		d := preds[i] - targets[i]
		sse += d * d
	}
	mse = sse / float64(len(preds))

	r2 = stat.RSquaredFrom(preds, targets, nil)
	return mse, r2, nil
}
