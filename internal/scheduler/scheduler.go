// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultPurgeSchedule is how often expired link codes are removed
const DefaultPurgeSchedule = "@every 5m"

// LinkCodePurger removes expired link codes
type LinkCodePurger interface {
	PurgeExpiredLinkCodes(ctx context.Context, at time.Time) (int64, error)
}

// Scheduler wraps a cron runner
type Scheduler struct {
	cron *cron.Cron
}

// New creates an empty scheduler
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// AddLinkCodePurge schedules the expired link code purge.
// spec is a standard 5-field cron expression or a descriptor such as "@every 5m".
func (s *Scheduler) AddLinkCodePurge(spec string, purger LinkCodePurger) error {
	if spec == "" {
		spec = DefaultPurgeSchedule
	}

	_, err := s.cron.AddFunc(spec, func() {
		PurgeLinkCodes(context.Background(), purger)
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}

	log.Info().
		Str("schedule", spec).
		Msg("Link code purge scheduled")
	return nil
}

// Len returns the number of scheduled jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler until ctx is cancelled, then waits for running jobs
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Info().Msg("Scheduler stopped")
}

// PurgeLinkCodes runs one purge with a bounded timeout
func PurgeLinkCodes(ctx context.Context, purger LinkCodePurger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := purger.PurgeExpiredLinkCodes(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired link codes")
		return
	}
	if n > 0 {
		log.Info().
			Int64("purged", n).
			Msg("Expired link codes purged")
	}
}
