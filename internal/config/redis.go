package config

import "time"

type RedisConfig struct {
	Enabled  bool
	DB       int
	Url      string
	Password string
	CacheTTL time.Duration
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false),
		DB:       getEnvInt("REDIS_DB", 0),
		Url:      getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 5*time.Minute),
	}
}
