// FilePath: internal/service/service.history.go
package service

import (
	"context"

	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
)

// History answers the adaptive bucketed query for one greenhouse. Read paths
// stay lenient: an unknown greenhouse simply has no data, so the result is an
// empty list rather than an error.
func (s *Service) History(ctx context.Context, greenhouseID int64, dateFrom, dateTo string) ([]models.BucketedRecord, error) {
	return s.history.Query(ctx, greenhouseID, dateFrom, dateTo)
}

// RealtimeSnapshot returns the greenhouse's currently buffered readings, the
// open window's raw contents. The dashboard seeds its realtime chart from
// this before live readings start arriving.
func (s *Service) RealtimeSnapshot(ctx context.Context, greenhouseID int64) ([]models.SensorReading, error) {
	return s.realtime.Buffered(ctx, greenhouseID)
}

// LatestRecord returns the most recent historical record for a greenhouse,
// serving from the cache when possible. Returns (nil, nil) when the
// greenhouse has no data yet.
func (s *Service) LatestRecord(ctx context.Context, greenhouseID int64) (*models.HistoricalRecord, error) {
	if record, ok := s.cache.GetLatest(ctx, greenhouseID); ok {
		return record, nil
	}

	record, err := s.historical.Latest(ctx, greenhouseID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	s.cache.SetLatest(ctx, record)
	return record, nil
}
