package schedulerengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/static/errs"
)

// SessionSweeper is the part of the orchestrator the engine drives
type SessionSweeper interface {
	SweepSessions(ctx context.Context) error
}

// SchedulerEngine runs the periodic background tasks of the service
type SchedulerEngine struct {
	cfg     *config.OrchestratorCfg
	sweeper SessionSweeper
	logger  primary.Logger
	wg      sync.WaitGroup
}

func NewSchedulerEngine(cfg *config.OrchestratorCfg, sweeper SessionSweeper, logger primary.Logger) *SchedulerEngine {
	return &SchedulerEngine{
		cfg:     cfg,
		sweeper: sweeper,
		logger:  logger,
	}
}

// StartSessionSweepEngine asks the orchestrator to expire sessions every SweepInterval until ctx ends
func (s *SchedulerEngine) StartSessionSweepEngine(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		s.logger.Info("Session sweep disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.sweep(ctx) {
					return
				}
			}
		}
	}()
}

// sweep runs one pass and reports whether the engine should keep going
func (s *SchedulerEngine) sweep(ctx context.Context) bool {
	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.SweepInterval)
	defer cancel()

	err := s.sweeper.SweepSessions(sweepCtx)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errs.ErrOrchestratorStopped):
		s.logger.Info("Orchestrator stopped, session sweep ends")
		return false
	case ctx.Err() != nil:
		return false
	default:
		s.logger.Error("Failed to sweep sessions", "error", err)
		return true
	}
}

// Wait blocks until every engine goroutine returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}
