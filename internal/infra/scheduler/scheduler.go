package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Jobs is the work the scheduler triggers. NotificationService satisfies it.
type Jobs interface {
	SendDigest(ctx context.Context) error
	RemindStale(ctx context.Context) error
}

const (
	digestTimeout = 1 * time.Minute
	staleTimeout  = 2 * time.Minute
)

type ReportScheduler struct {
	cronEngine         *cron.Cron
	jobs               Jobs
	logger             *logrus.Entry
	cronSpecDigest     string
	cronSpecStaleCheck string
}

func NewReportScheduler(
	jobs Jobs,
	logger *logrus.Entry,
	cronSpecDigest string, // e.g. "0 8 * * 1-5" (8:00 on weekdays)
	cronSpecStaleCheck string, // e.g. "0 */4 * * *" (every 4 hours)
) *ReportScheduler {
	return &ReportScheduler{
		cronEngine:         cron.New(cron.WithLocation(time.Local)),
		jobs:               jobs,
		logger:             logger,
		cronSpecDigest:     cronSpecDigest,
		cronSpecStaleCheck: cronSpecStaleCheck,
	}
}

// Start registers both jobs and starts the engine. An empty spec disables its job.
func (s *ReportScheduler) Start() error {
	s.logger.Info("Starting report scheduler...")

	if s.cronSpecDigest != "" {
		if _, err := s.cronEngine.AddFunc(s.cronSpecDigest, func() {
			s.runJob("digest", digestTimeout, s.jobs.SendDigest)
		}); err != nil {
			return fmt.Errorf("could not add digest cron job %q: %w", s.cronSpecDigest, err)
		}
	}
	if s.cronSpecStaleCheck != "" {
		if _, err := s.cronEngine.AddFunc(s.cronSpecStaleCheck, func() {
			s.runJob("stale_check", staleTimeout, s.jobs.RemindStale)
		}); err != nil {
			return fmt.Errorf("could not add stale check cron job %q: %w", s.cronSpecStaleCheck, err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Report scheduler started")
	return nil
}

func (s *ReportScheduler) runJob(name string, timeout time.Duration, fn func(context.Context) error) {
	logCtx := s.logger.WithField("job", name)
	logCtx.Info("Cron job triggered")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		logCtx.WithError(err).Error("Cron job failed")
		return
	}
	logCtx.WithField("duration", time.Since(start).String()).Info("Cron job finished")
}

func (s *ReportScheduler) Stop() {
	s.logger.Info("Stopping report scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Report scheduler gracefully stopped")
}
