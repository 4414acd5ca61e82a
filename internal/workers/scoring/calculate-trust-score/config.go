// internal/workers/scoring/calculate-trust-score/config.go
package calculatetrustscore

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  15 * time.Second,
		CacheTTL: time.Hour,
	}
}
