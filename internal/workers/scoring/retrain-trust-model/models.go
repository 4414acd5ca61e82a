// internal/workers/scoring/retrain-trust-model/models.go
package retraintrustmodel

import "trustlend-workers/internal/trust"

type Input struct {
	AllowSynthetic bool `json:"allowSynthetic"`
}

type Output struct {
	ModelVersion      string             `json:"modelVersion"`
	TrainedAt         string             `json:"trainedAt"`
	DataSource        string             `json:"dataSource"`
	Metrics           trust.ModelMetrics `json:"metrics"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
}
