package config

import "time"

type HttpConfig struct {
	Port        int
	ReadTimeout time.Duration
	// WriteTimeout is 0 by default: streaming responses stay open for the session lifetime
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewHttpConfig() *HttpConfig {
	return &HttpConfig{
		Port:         getEnvInt("HTTP_PORT", 8082),
		ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 0),
		IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
	}
}

type TcpConfig struct {
	Enabled bool
	Address string
}

func NewTcpConfig() *TcpConfig {
	return &TcpConfig{
		Enabled: getEnvBool("TCP_ENABLED", true),
		Address: getEnv("TCP_ADDR", ":9000"),
	}
}
