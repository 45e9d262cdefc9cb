// FilePath: internal/aggregator/aggregator.go

// Package aggregator buffers raw greenhouse readings and collapses each
// expired accumulation window into a single averaged historical record.
//
// Per greenhouse the window moves through three phases: Empty (no buffered
// rows), Accumulating (rows buffered, window anchored at the oldest row's
// timestamp) and Flushing (average, commit, clear). The phase is derived
// from the durable realtime store, not held in memory, so a restart resumes
// an open window where it left off.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
	"github.com/verdant-labs/greenhub/internal/repository"
)

// Result reports the outcome of one ingested reading.
type Result struct {
	// Aggregated is true when this reading closed the window and produced
	// a historical record.
	Aggregated bool
	Record     *models.HistoricalRecord
}

// Aggregator owns the transition of buffered readings into historical
// records; no other component writes aggregated rows derived from realtime
// data.
type Aggregator struct {
	realtime   repository.RealtimeRepository
	historical repository.HistoricalRepository
	window     time.Duration

	now     func() time.Time
	onFlush func(record *models.HistoricalRecord)

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(realtime repository.RealtimeRepository, historical repository.HistoricalRepository, window time.Duration) *Aggregator {
	return &Aggregator{
		realtime:   realtime,
		historical: historical,
		window:     window,
		now:        time.Now,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// OnFlush registers a callback invoked after a successful window flush.
func (a *Aggregator) OnFlush(fn func(record *models.HistoricalRecord)) {
	a.onFlush = fn
}

// SetClock overrides the aggregator's clock reference.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// lockFor returns the mutex serializing one greenhouse's append-check-flush
// sequence. Different greenhouses proceed fully in parallel.
func (a *Aggregator) lockFor(greenhouseID int64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[greenhouseID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[greenhouseID] = lock
	}
	return lock
}

// Ingest appends one validated reading to the greenhouse's window and flushes
// the window if it has expired.
//
// Failure semantics: if the raw persist fails nothing is buffered and the
// whole call fails. If the aggregation commit fails after the raw persist,
// the buffered rows stay in place and are retried on the next trigger.
func (a *Aggregator) Ingest(ctx context.Context, reading *models.SensorReading) (Result, error) {
	lock := a.lockFor(reading.GreenhouseID)
	lock.Lock()
	defer lock.Unlock()

	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = a.now().UTC()
	}

	if _, err := a.realtime.Insert(ctx, reading); err != nil {
		return Result{}, err
	}

	buffered, err := a.realtime.Buffered(ctx, reading.GreenhouseID)
	if err != nil {
		return Result{}, err
	}
	if len(buffered) == 0 {
		return Result{}, nil
	}

	// Both sides of the subtraction use the same clock reference in UTC.
	windowStart := buffered[0].CreatedAt
	for _, row := range buffered[1:] {
		if row.CreatedAt.Before(windowStart) {
			windowStart = row.CreatedAt
		}
	}

	now := a.now().UTC()
	if now.Sub(windowStart.UTC()) < a.window {
		return Result{Aggregated: false}, nil
	}

	record, maxID := averageWindow(reading.GreenhouseID, buffered, now)

	if _, err := a.historical.Insert(ctx, record); err != nil {
		return Result{}, errors.NewAggregationError("failed to commit aggregated record", err)
	}

	// Clear only through the snapshot boundary: a reading that arrived after
	// Buffered() was taken belongs to the next window and must survive.
	if err := a.realtime.DeleteThrough(ctx, reading.GreenhouseID, maxID); err != nil {
		return Result{}, errors.NewAggregationError("failed to clear flushed window", err)
	}

	if a.onFlush != nil {
		a.onFlush(record)
	}
	return Result{Aggregated: true, Record: record}, nil
}

// averageWindow computes the per-field arithmetic mean over the buffered
// rows. Nulls are excluded per field: a field's average covers only the rows
// where that field is present.
func averageWindow(greenhouseID int64, buffered []models.SensorReading, flushedAt time.Time) (*models.HistoricalRecord, int64) {
	var maxID int64

	type acc struct {
		sum   float64
		count int
	}
	var temp, hum, turb, water acc

	add := func(a *acc, v *float64) {
		if v != nil {
			a.sum += *v
			a.count++
		}
	}

	for _, row := range buffered {
		if row.ID > maxID {
			maxID = row.ID
		}
		add(&temp, row.DhtTemp)
		add(&hum, row.DhtHum)
		add(&turb, row.Turbidity)
		add(&water, row.WaterTemp)
	}

	mean := func(a acc) *float64 {
		if a.count == 0 {
			return nil
		}
		m := a.sum / float64(a.count)
		return &m
	}

	return &models.HistoricalRecord{
		GreenhouseID: greenhouseID,
		DhtTemp:      mean(temp),
		DhtHum:       mean(hum),
		Turbidity:    mean(turb),
		WaterTemp:    mean(water),
		CreatedAt:    flushedAt,
	}, maxID
}
