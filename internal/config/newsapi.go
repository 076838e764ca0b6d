package config

import "time"

type NewsApiConfig struct {
	BaseURL       string
	ApiKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

func NewNewsApiConfig() *NewsApiConfig {
	return &NewsApiConfig{
		BaseURL:       getEnv("NEWSAPI_URL", "https://newsapi.org/v2"),
		ApiKey:        getEnv("NEWSAPI_KEY", ""),
		Timeout:       getEnvDuration("NEWSAPI_TIMEOUT", 10*time.Second),
		RatePerSecond: getEnvFloat("NEWSAPI_RATE_PER_SECOND", 5),
		Burst:         getEnvInt("NEWSAPI_BURST", 10),
	}
}
