// FilePath: internal/retention/retention.go

// Package retention prunes aged rows from the historical store on a
// schedule. The realtime buffer is deliberately untouched: unaggregated
// readings are never dropped, however old.
package retention

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/internal/config"
	"github.com/verdant-labs/greenhub/internal/repository"
)

// Sweeper runs the periodic retention job.
type Sweeper struct {
	historical repository.HistoricalRepository
	maxAge     time.Duration
	scheduler  *gocron.Scheduler
	events     *nuts.EventEmitter
}

func New(historical repository.HistoricalRepository, cfg config.RetentionConfig, events *nuts.EventEmitter) *Sweeper {
	return &Sweeper{
		historical: historical,
		maxAge:     cfg.MaxAge,
		scheduler:  gocron.NewScheduler(time.UTC),
		events:     events,
	}
}

// Start schedules the sweep and runs the scheduler in the background.
func (s *Sweeper) Start(interval time.Duration) error {
	if _, err := s.scheduler.Every(interval).Do(s.sweep); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	nuts.L.Infof("[Retention] Sweeping records older than %v every %v", s.maxAge, interval)
	return nil
}

// Stop halts the scheduler; a sweep in flight finishes.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.maxAge)
	rows, err := s.historical.DeleteOld(ctx, cutoff)
	if err != nil {
		nuts.L.Errorf("[Retention] Sweep failed: %v", err)
		return
	}
	if rows > 0 && s.events != nil {
		s.events.Emit("retention.pruned", rows)
	}
}
