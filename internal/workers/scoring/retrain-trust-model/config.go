// internal/workers/scoring/retrain-trust-model/config.go
package retraintrustmodel

import "time"

type Config struct {
	Timeout         time.Duration
	ArtifactPath    string
	MinTrainingRows int
	SyntheticRows   int
	SyntheticSeed   uint64
	RidgeAlpha      float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         120 * time.Second,
		ArtifactPath:    "data/trust_model.json",
		MinTrainingRows: 50,
		SyntheticRows:   1000,
		SyntheticSeed:   42,
		RidgeAlpha:      1.0,
	}
}
