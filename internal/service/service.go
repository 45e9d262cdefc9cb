// FilePath: internal/service/service.go
package service

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/internal/aggregator"
	"github.com/verdant-labs/greenhub/internal/cache"
	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/history"
	"github.com/verdant-labs/greenhub/internal/models"
	"github.com/verdant-labs/greenhub/internal/repository"
)

// Service contains all repositories and service-wide dependencies
type Service struct {
	greenhouses repository.GreenhouseRepository
	realtime    repository.RealtimeRepository
	historical  repository.HistoricalRepository
	aggregator  *aggregator.Aggregator
	history     *history.Engine
	cache       *cache.LatestCache
	events      *nuts.EventEmitter
	now         func() time.Time
}

// New creates a new Service instance
func New(
	greenhouses repository.GreenhouseRepository,
	realtime repository.RealtimeRepository,
	historical repository.HistoricalRepository,
	latestCache *cache.LatestCache,
	window time.Duration,
) *Service {
	svc := &Service{
		greenhouses: greenhouses,
		realtime:    realtime,
		historical:  historical,
		aggregator:  aggregator.New(realtime, historical, window),
		history:     history.NewEngine(historical),
		cache:       latestCache,
		events:      nuts.NewEventEmitter(),
		now:         time.Now,
	}

	svc.aggregator.OnFlush(func(record *models.HistoricalRecord) {
		svc.cache.SetLatest(context.Background(), record)
		svc.events.Emit("window.flushed", record.GreenhouseID)
	})

	return svc
}

// Events exposes the service event emitter for monitoring hooks.
func (s *Service) Events() *nuts.EventEmitter {
	return s.events
}

// ListGreenhouses returns the registry contents.
func (s *Service) ListGreenhouses(ctx context.Context) ([]*models.Greenhouse, error) {
	return s.greenhouses.List(ctx)
}

// checkGreenhouseExists enforces the FK check applied uniformly on both
// ingest paths.
func (s *Service) checkGreenhouseExists(ctx context.Context, id int64) *errors.APIError {
	exists, err := s.greenhouses.Exists(ctx, id)
	if err != nil {
		return errors.NewDatabaseError("failed to verify greenhouse", err)
	}
	if !exists {
		return errors.NewForeignKeyError(id)
	}
	return nil
}
