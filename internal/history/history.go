// FilePath: internal/history/history.go

// Package history shapes time-range queries against the historical store.
// The bucket granularity is chosen purely from the span of the requested
// range; data density plays no part.
package history

import (
	"context"
	"math"
	"time"

	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
	"github.com/verdant-labs/greenhub/internal/repository"
)

// Granularity is a query-time grouping interval, distinct from the
// ingestion-side window.
type Granularity string

const (
	GranularityHour    Granularity = "hour"
	GranularitySixHour Granularity = "6hour"
	GranularityDay     Granularity = "day"
)

// DefaultSpan is the trailing window applied when no bounds are given.
const DefaultSpan = 30 * 24 * time.Hour

var rangeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

const dateLayout = "2006-01-02"

// Engine answers bucketed history queries. Read-only; snapshot consistency
// is whatever the storage layer provides.
type Engine struct {
	historical repository.HistoricalRepository
	now        func() time.Time
}

func NewEngine(historical repository.HistoricalRepository) *Engine {
	return &Engine{historical: historical, now: time.Now}
}

// SetClock overrides the engine's clock reference.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Query returns per-bucket field averages for the greenhouse over the
// requested range, ascending by bucket timestamp. Buckets with no underlying
// records are omitted.
func (e *Engine) Query(ctx context.Context, greenhouseID int64, fromStr, toStr string) ([]models.BucketedRecord, error) {
	from, to, apiErr := NormalizeRange(fromStr, toStr, e.now().UTC())
	if apiErr != nil {
		return nil, apiErr
	}

	records, err := e.historical.ListRange(ctx, greenhouseID, from, to)
	if err != nil {
		return nil, err
	}

	return Bucketize(records, SelectGranularity(from, to)), nil
}

// NormalizeRange resolves the requested bounds. Bare dates expand to full-day
// boundaries (00:00:00 through 23:59:59); a missing upper bound means now and
// a missing lower bound means a trailing 30-day window.
func NormalizeRange(fromStr, toStr string, now time.Time) (time.Time, time.Time, *errors.APIError) {
	to := now
	if toStr != "" {
		parsed, bareDate, apiErr := parseBound("date_to", toStr)
		if apiErr != nil {
			return time.Time{}, time.Time{}, apiErr
		}
		to = parsed
		if bareDate {
			to = to.Add(24*time.Hour - time.Second) // 23:59:59
		}
	}

	from := to.Add(-DefaultSpan)
	if fromStr != "" {
		parsed, _, apiErr := parseBound("date_from", fromStr)
		if apiErr != nil {
			return time.Time{}, time.Time{}, apiErr
		}
		from = parsed
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.NewValidationError("date_to precedes date_from", nil)
	}
	return from, to, nil
}

func parseBound(name, s string) (time.Time, bool, *errors.APIError) {
	if ts, err := time.Parse(dateLayout, s); err == nil {
		return ts.UTC(), true, nil
	}
	for _, layout := range rangeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), false, nil
		}
	}
	return time.Time{}, false, errors.NewInvalidFieldError(name, s)
}

// SelectGranularity picks the bucket size from the span alone. The day
// boundary is strictly greater than three days; a three-day-exactly span
// buckets by six hours and a one-day span buckets by hour.
func SelectGranularity(from, to time.Time) Granularity {
	span := to.Sub(from)
	switch {
	case span > 72*time.Hour:
		return GranularityDay
	case span > 24*time.Hour:
		return GranularitySixHour
	default:
		return GranularityHour
	}
}

type bucketAcc struct {
	start  time.Time
	latest time.Time
	sums   [4]float64
	counts [4]int
	ghID   int64
}

// Bucketize groups records (assumed ascending) into buckets of the given
// granularity and averages every field across each bucket, excluding nulls
// per field. Day buckets are stamped with the bucket start; 6-hour and hour
// buckets with the newest timestamp observed inside the bucket. The chart
// x-axis depends on exactly this asymmetry.
func Bucketize(records []models.HistoricalRecord, g Granularity) []models.BucketedRecord {
	order := []time.Time{}
	buckets := map[time.Time]*bucketAcc{}

	for _, rec := range records {
		start := bucketStart(rec.CreatedAt.UTC(), g)
		acc, ok := buckets[start]
		if !ok {
			acc = &bucketAcc{start: start, ghID: rec.GreenhouseID}
			buckets[start] = acc
			order = append(order, start)
		}
		if rec.CreatedAt.After(acc.latest) {
			acc.latest = rec.CreatedAt
		}
		accumulate(acc, rec)
	}

	out := make([]models.BucketedRecord, 0, len(order))
	for _, start := range order {
		acc := buckets[start]
		ts := acc.start
		if g != GranularityDay {
			ts = acc.latest.UTC()
		}
		out = append(out, models.BucketedRecord{
			GreenhouseID: acc.ghID,
			DhtTemp:      avg(acc, 0),
			DhtHum:       avg(acc, 1),
			Turbidity:    avg(acc, 2),
			WaterTemp:    avg(acc, 3),
			CreatedAt:    ts,
		})
	}
	return out
}

func bucketStart(ts time.Time, g Granularity) time.Time {
	switch g {
	case GranularityDay:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	case GranularitySixHour:
		block := (ts.Hour() / 6) * 6
		return time.Date(ts.Year(), ts.Month(), ts.Day(), block, 0, 0, 0, time.UTC)
	default:
		return ts.Truncate(time.Hour)
	}
}

func accumulate(acc *bucketAcc, rec models.HistoricalRecord) {
	for i, v := range []*float64{rec.DhtTemp, rec.DhtHum, rec.Turbidity, rec.WaterTemp} {
		if v != nil {
			acc.sums[i] += *v
			acc.counts[i]++
		}
	}
}

func avg(acc *bucketAcc, i int) *float64 {
	if acc.counts[i] == 0 {
		return nil
	}
	v := round2(acc.sums[i] / float64(acc.counts[i]))
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
