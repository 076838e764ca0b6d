package config

import "time"

type OrchestratorCfg struct {
	RequestTimeout time.Duration
	MaxRestarts    int
	RestartWindow  time.Duration
	InboxSize      int

	QueueCapacity  int
	SessionIdleTTL time.Duration
	MaxSessions    int
	SweepInterval  time.Duration
}

func NewOrchestratorCfg() *OrchestratorCfg {
	return &OrchestratorCfg{
		RequestTimeout: getEnvDuration("ORCHESTRATOR_REQUEST_TIMEOUT", 15*time.Second),
		MaxRestarts:    getEnvInt("ORCHESTRATOR_MAX_RESTARTS", 3),
		RestartWindow:  getEnvDuration("ORCHESTRATOR_RESTART_WINDOW", time.Minute),
		InboxSize:      getEnvInt("ORCHESTRATOR_INBOX_SIZE", 256),
		QueueCapacity:  getEnvInt("STREAM_QUEUE_CAPACITY", 32),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		MaxSessions:    getEnvInt("SESSION_MAX", 1024),
		SweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
	}
}
