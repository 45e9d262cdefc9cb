// FilePath: internal/service/service.ingest.go
package service

import (
	"context"

	"github.com/verdant-labs/greenhub/internal/aggregator"
	"github.com/verdant-labs/greenhub/internal/models"
)

// InsertSensorReading is the synchronous insert path: the validated reading
// is written straight to the historical store as one record and its id
// returned. No windowing is involved.
func (s *Service) InsertSensorReading(ctx context.Context, greenhouseID string, payload aggregator.Payload) (int64, error) {
	reading, apiErr := aggregator.ValidateReading(greenhouseID, payload, s.now())
	if apiErr != nil {
		return 0, apiErr
	}
	if apiErr := s.checkGreenhouseExists(ctx, reading.GreenhouseID); apiErr != nil {
		return 0, apiErr
	}

	record := &models.HistoricalRecord{
		GreenhouseID: reading.GreenhouseID,
		DhtTemp:      reading.DhtTemp,
		DhtHum:       reading.DhtHum,
		Turbidity:    reading.Turbidity,
		WaterTemp:    reading.WaterTemp,
		CreatedAt:    reading.CreatedAt,
	}

	id, err := s.historical.Insert(ctx, record)
	if err != nil {
		return 0, err
	}

	record.ID = id
	s.cache.SetLatest(ctx, record)
	return id, nil
}

// IngestRealtime is the buffered path: the validated reading joins the
// greenhouse's open window and may trigger a flush.
func (s *Service) IngestRealtime(ctx context.Context, greenhouseID string, payload aggregator.Payload) (aggregator.Result, error) {
	reading, apiErr := aggregator.ValidateReading(greenhouseID, payload, s.now())
	if apiErr != nil {
		return aggregator.Result{}, apiErr
	}
	if apiErr := s.checkGreenhouseExists(ctx, reading.GreenhouseID); apiErr != nil {
		return aggregator.Result{}, apiErr
	}

	return s.aggregator.Ingest(ctx, reading)
}
