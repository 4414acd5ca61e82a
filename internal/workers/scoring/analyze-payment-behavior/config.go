// internal/workers/scoring/analyze-payment-behavior/config.go
package analyzepaymentbehavior

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
