// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Dispatcher drains the SMS outbox. Implemented by the dispatch service.
type Dispatcher interface {
	DispatchQueued(ctx context.Context) (sent, failed int, err error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	interval   time.Duration
	logger     *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(dispatcher Dispatcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:       c,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// SMS outbox drain: queued and previously failed messages are retried
	// on a fixed interval.
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.drainOutbox))

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.Duration("sms_retry_interval", s.interval),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers an outbox drain (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.drainOutbox()
}

// drainOutbox pushes queued SMS messages through the gateway.
func (s *Scheduler) drainOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, failed, err := s.dispatcher.DispatchQueued(ctx)
	if err != nil {
		s.logger.Error("sms outbox drain failed", slog.Any("error", err))
		return
	}

	if sent > 0 || failed > 0 {
		s.logger.Info("sms outbox drained",
			slog.Int("sent", sent),
			slog.Int("failed", failed),
		)
	}
}
