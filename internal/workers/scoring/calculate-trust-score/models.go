// internal/workers/scoring/calculate-trust-score/models.go
package calculatetrustscore

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	UserID            string             `json:"userId"`
	TrustScore        float64            `json:"trustScore"`
	TrustLevel        string             `json:"trustLevel"`
	Confidence        float64            `json:"confidence"`
	Factors           map[string]float64 `json:"factors"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
	ModelVersion      string             `json:"modelVersion"`
	CalculatedAt      string             `json:"calculatedAt"`
}
