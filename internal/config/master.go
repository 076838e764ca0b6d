package config

import "os"

type AppConfig struct {
	DebugMode       bool
	LogLevel        string
	HttpConfig      *HttpConfig
	TcpConfig       *TcpConfig
	NewsApiConfig   *NewsApiConfig
	RedisConfig     *RedisConfig
	OrchestratorCfg *OrchestratorCfg
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:       os.Getenv("DEBUG_MODE") == "true",
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HttpConfig:      NewHttpConfig(),
		TcpConfig:       NewTcpConfig(),
		NewsApiConfig:   NewNewsApiConfig(),
		RedisConfig:     NewRedisConfig(),
		OrchestratorCfg: NewOrchestratorCfg(),
	}
}
