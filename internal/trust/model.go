package trust

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"trustlend-workers/internal/models"
)

// MinTrainRows is the hard floor below which a train/test split is
// meaningless. Deployments usually configure a much higher minimum.
const MinTrainRows = 2

const (
	testFraction = 0.2
	splitSeed    = 42
)

// ModelMetrics captures the held-out evaluation of a training run.
type ModelMetrics struct {
	MSE       float64 `json:"mse"`
	R2        float64 `json:"r2"`
	TrainRows int     `json:"trainRows"`
	TestRows  int     `json:"testRows"`
}

// Model is a fitted scaler+regressor pair. Instances are immutable after
// training; retraining produces a new Model that the registry swaps in.
type Model struct {
	Version    string             `json:"version"`
	TrainedAt  time.Time          `json:"trainedAt"`
	Scaler     StandardScaler     `json:"scaler"`
	Regressor  RidgeRegressor     `json:"regressor"`
	Metrics    ModelMetrics       `json:"metrics"`
	Importance map[string]float64 `json:"featureImportance"`
}

// TrainModel fits a model on the dataset: deterministic shuffle split,
// scaler fitted on the training partition only, ridge solve, held-out
// evaluation. The context is checked between phases so a worker deadline
// cancels training cleanly without producing a partial model.
func TrainModel(ctx context.Context, ds *Dataset, alpha float64) (*Model, error) {
	n := len(ds.Features)
	if n < MinTrainRows {
		return nil, fmt.Errorf("training requires at least %d rows, got %d", MinTrainRows, n)
	}
	if n != len(ds.Targets) {
		return nil, fmt.Errorf("got %d feature rows but %d targets", n, len(ds.Targets))
	}

	trainX, trainY, testX, testY := split(ds)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := &Model{
		TrainedAt: time.Now().UTC(),
		Regressor: RidgeRegressor{Alpha: alpha},
	}
	model.Version = fmt.Sprintf("ridge-%s", model.TrainedAt.Format("20060102T150405Z"))

	if err := model.Scaler.Fit(trainX); err != nil {
		return nil, err
	}
	scaledTrain, err := model.Scaler.TransformAll(trainX)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := model.Regressor.Fit(scaledTrain, trainY); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaledTest, err := model.Scaler.TransformAll(testX)
	if err != nil {
		return nil, err
	}
	mse, r2, err := model.Regressor.Evaluate(scaledTest, testY)
	if err != nil {
		return nil, err
	}

	model.Metrics = ModelMetrics{
		MSE:       mse,
		R2:        r2,
		TrainRows: len(trainX),
		TestRows:  len(testX),
	}
	model.Importance = model.Regressor.FeatureImportance()
	return model, nil
}

// split shuffles row indices with a fixed seed and carves off the test
// partition, at least one row on each side.
func split(ds *Dataset) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	n := len(ds.Features)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(splitSeed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	testCount := int(float64(n) * testFraction)
	if testCount < 1 {
		testCount = 1
	}
	if testCount >= n {
		testCount = n - 1
	}

	for i, v := range idx {
		if i < testCount {
			testX = append(testX, ds.Features[v])
			testY = append(testY, ds.Targets[v])
		} else {
			trainX = append(trainX, ds.Features[v])
			trainY = append(trainY, ds.Targets[v])
		}
	}
	return trainX, trainY, testX, testY
}

// Predict scores a raw feature vector, clipped to the 0-1000 scale and
// rounded to two decimals.
func (m *Model) Predict(features []float64) (float64, error) {
	scaled, err := m.Scaler.Transform(features)
	if err != nil {
		return 0, err
	}
	raw, err := m.Regressor.Predict(scaled)
	if err != nil {
		return 0, err
	}
	return round2(math.Max(0, math.Min(1000, raw))), nil
}

// PredictionFactors picks the explanation subset of the feature vector,
// rounded for reporting, plus the underlying credit score and income.
func PredictionFactors(features []float64, user *models.UserProfile) map[string]float64 {
	factors := map[string]float64{
		"payment_history_score": round3(features[0]),
		"credit_utilization":    round3(features[1]),
		"debt_to_income_ratio":  round3(features[2]),
		"payment_frequency":     round3(features[5]),
		"late_payment_ratio":    round3(features[6]),
		"missed_payment_ratio":  round3(features[7]),
		"income":                user.Income,
	}
	cs := defaultCreditScore
	if user.CreditScore != nil {
		cs = *user.CreditScore
	}
	factors["credit_score"] = float64(cs)
	return factors
}
