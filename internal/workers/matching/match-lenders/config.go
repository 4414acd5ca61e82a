// internal/workers/matching/match-lenders/config.go
package matchlenders

import "time"

type Config struct {
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    10 * time.Second,
		CacheTTL:   5 * time.Minute,
		MaxResults: 20,
	}
}
