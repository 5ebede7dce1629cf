package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

const (
	DefaultResetSchedule = "5 0 1 * *"      // 00:05 UTC on the 1st
	CronJobTimeout       = 10 * time.Minute // per job execution
)

// Resetter zeroes counters of accounts that belong to an earlier period.
type Resetter interface {
	ResetStale(ctx context.Context, period string, now time.Time) (int64, error)
}

type Crontab struct {
	ctab     *crontab.Crontab
	resetter Resetter
	schedule string
	now      func() time.Time
	log      zerolog.Logger
}

func NewCrontab(resetter Resetter, schedule string, log zerolog.Logger) *Crontab {
	if schedule == "" {
		schedule = DefaultResetSchedule
	}
	return &Crontab{
		ctab:     crontab.New(),
		resetter: resetter,
		schedule: schedule,
		now:      time.Now,
		log:      log.With().Str("component", "crontab").Logger(),
	}
}

// Run sweeps once on start, schedules the monthly sweep and blocks until ctx is done.
// The lazy reset inside Increment makes a missed run harmless.
func (c *Crontab) Run(ctx context.Context) error {
	c.ResetUsage(ctx)

	if err := c.ctab.AddJob(c.schedule, func() {
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CronJobTimeout)
		defer cancel()
		c.ResetUsage(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add usage reset job")
	}
	c.log.Info().Str("schedule", c.schedule).Msg("usage reset scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// ResetUsage runs one sweep for the current period.
func (c *Crontab) ResetUsage(ctx context.Context) int64 {
	now := c.now().UTC()
	period := usage.PeriodOf(now)
	n, err := c.resetter.ResetStale(ctx, period, now)
	if err != nil {
		c.log.Error().Err(err).Str("period", period).Msg("usage reset failed")
		return 0
	}
	if n > 0 {
		c.log.Info().Int64("accounts", n).Str("period", period).Msg("usage counters reset")
	}
	return n
}

// WithClock overrides the time source, for tests.
func (c *Crontab) WithClock(now func() time.Time) *Crontab {
	c.now = now
	return c
}
