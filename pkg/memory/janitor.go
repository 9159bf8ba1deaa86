package memory

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor runs CleanOldMemories on a cron schedule.
type Janitor struct {
	cron    *cron.Cron
	store   *Store
	days    int
	logger  zerolog.Logger
	deleted prometheus.Counter
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithDeletedCounter adds every cleanup's deleted count to counter.
func WithDeletedCounter(counter prometheus.Counter) JanitorOption {
	return func(j *Janitor) {
		j.deleted = counter
	}
}

// NewJanitor schedules cleanup of store. An empty schedule uses the store's
// CleanupSchedule; a non-positive days uses its CleanupDays.
func NewJanitor(store *Store, schedule string, days int, logger zerolog.Logger, opts ...JanitorOption) (*Janitor, error) {
	if schedule == "" {
		schedule = store.config.CleanupSchedule
	}

	j := &Janitor{
		cron:   cron.New(),
		store:  store,
		days:   days,
		logger: logger.With().Str("component", "janitor").Logger(),
	}
	for _, opt := range opts {
		opt(j)
	}

	if _, err := j.cron.AddFunc(schedule, func() {
		_, _ = j.RunOnce(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("NewJanitor: invalid schedule %q: %w", schedule, err)
	}

	return j, nil
}

// Start starts the scheduler in the background.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info().Msg("janitor started")
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info().Msg("janitor stopped")
}

// RunOnce performs one cleanup immediately.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := j.store.CleanOldMemories(ctx, j.days)
	if err != nil {
		j.logger.Error().Err(err).Msg("cleanup failed")
		return 0, err
	}
	if j.deleted != nil {
		j.deleted.Add(float64(deleted))
	}
	return deleted, nil
}
