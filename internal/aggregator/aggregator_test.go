package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apierrors "github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
)

// memRealtime is an in-memory stand-in for the realtime buffer.
type memRealtime struct {
	mu        sync.Mutex
	rows      []models.SensorReading
	nextID    int64
	insertErr error
	// onBuffered runs after Buffered returns, to simulate a reading arriving
	// between the flush snapshot and the delete.
	onBuffered func(m *memRealtime)
}

func (m *memRealtime) Insert(_ context.Context, reading *models.SensorReading) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	row := *reading
	row.ID = m.nextID
	m.rows = append(m.rows, row)
	return row.ID, nil
}

func (m *memRealtime) Buffered(_ context.Context, greenhouseID int64) ([]models.SensorReading, error) {
	m.mu.Lock()
	out := []models.SensorReading{}
	for _, row := range m.rows {
		if row.GreenhouseID == greenhouseID {
			out = append(out, row)
		}
	}
	m.mu.Unlock()

	if m.onBuffered != nil {
		hook := m.onBuffered
		m.onBuffered = nil
		hook(m)
	}
	return out, nil
}

func (m *memRealtime) DeleteThrough(_ context.Context, greenhouseID, maxID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.GreenhouseID == greenhouseID && row.ID <= maxID {
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return nil
}

func (m *memRealtime) addRow(greenhouseID int64, temp float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows = append(m.rows, models.SensorReading{
		ID: m.nextID, GreenhouseID: greenhouseID, DhtTemp: &temp, CreatedAt: at,
	})
}

func (m *memRealtime) count(greenhouseID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.GreenhouseID == greenhouseID {
			n++
		}
	}
	return n
}

// memHistorical is an in-memory stand-in for the historical store.
type memHistorical struct {
	mu        sync.Mutex
	rows      []models.HistoricalRecord
	nextID    int64
	insertErr error
}

func (m *memHistorical) Insert(_ context.Context, record *models.HistoricalRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	row := *record
	row.ID = m.nextID
	m.rows = append(m.rows, row)
	return row.ID, nil
}

func (m *memHistorical) ListRange(_ context.Context, greenhouseID int64, from, to time.Time) ([]models.HistoricalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.HistoricalRecord{}
	for _, row := range m.rows {
		if row.GreenhouseID == greenhouseID && !row.CreatedAt.Before(from) && !row.CreatedAt.After(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memHistorical) Latest(_ context.Context, greenhouseID int64) (*models.HistoricalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.HistoricalRecord
	for i := range m.rows {
		row := m.rows[i]
		if row.GreenhouseID != greenhouseID {
			continue
		}
		if latest == nil || row.CreatedAt.After(latest.CreatedAt) {
			latest = &row
		}
	}
	if latest == nil {
		return nil, apierrors.NewNotFoundError("no historical data for greenhouse", nil)
	}
	return latest, nil
}

func (m *memHistorical) DeleteOld(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var deleted int64
	for _, row := range m.rows {
		if row.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return deleted, nil
}

func (m *memHistorical) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(v float64) *float64 { return &v }

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator(window time.Duration) (*Aggregator, *memRealtime, *memHistorical) {
	rt := &memRealtime{}
	hist := &memHistorical{}
	agg := New(rt, hist, window)
	return agg, rt, hist
}

func TestIngestBuffersWithoutFlush(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)
	agg.SetClock(fixedClock(t0))

	result, err := agg.Ingest(context.Background(), &models.SensorReading{
		GreenhouseID: 1, DhtTemp: ptr(20), CreatedAt: t0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Aggregated {
		t.Fatal("expected reading to stay buffered inside an open window")
	}
	if got := rt.count(1); got != 1 {
		t.Fatalf("expected 1 buffered row, got %d", got)
	}
	if hist.count() != 0 {
		t.Fatalf("expected no historical record, got %d", hist.count())
	}
}

func TestWindowFlushAveragesAllBufferedReadings(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)

	// Readings at t=0, 5 and 10 minutes stay buffered.
	for i, temp := range []float64{20, 22, 24} {
		at := t0.Add(time.Duration(i*5) * time.Minute)
		agg.SetClock(fixedClock(at))
		result, err := agg.Ingest(context.Background(), &models.SensorReading{
			GreenhouseID: 1, DhtTemp: ptr(temp), CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Aggregated {
			t.Fatalf("reading at t=%dm should not have aggregated", i*5)
		}
	}

	// The reading at t=16 minutes closes the window.
	at := t0.Add(16 * time.Minute)
	agg.SetClock(fixedClock(at))
	result, err := agg.Ingest(context.Background(), &models.SensorReading{
		GreenhouseID: 1, DhtTemp: ptr(26), CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aggregated {
		t.Fatal("expected expired window to flush")
	}

	if hist.count() != 1 {
		t.Fatalf("expected exactly one historical record, got %d", hist.count())
	}
	if result.Record.DhtTemp == nil || *result.Record.DhtTemp != 23 {
		t.Fatalf("expected dht_temp average 23, got %v", result.Record.DhtTemp)
	}
	if !result.Record.CreatedAt.Equal(at) {
		t.Fatalf("expected record stamped with flush time %v, got %v", at, result.Record.CreatedAt)
	}
	if got := rt.count(1); got != 0 {
		t.Fatalf("expected empty buffer after flush, got %d rows", got)
	}
}

func TestFlushExcludesNullsPerField(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)

	rt.rows = []models.SensorReading{
		{ID: 1, GreenhouseID: 1, Turbidity: ptr(10), CreatedAt: t0},
		{ID: 2, GreenhouseID: 1, CreatedAt: t0.Add(time.Minute)},
	}
	rt.nextID = 2

	at := t0.Add(20 * time.Minute)
	agg.SetClock(fixedClock(at))
	result, err := agg.Ingest(context.Background(), &models.SensorReading{
		GreenhouseID: 1, Turbidity: ptr(20), CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aggregated {
		t.Fatal("expected flush")
	}

	// Turbidity averages over the two present values only: (10+20)/2.
	if result.Record.Turbidity == nil || *result.Record.Turbidity != 15 {
		t.Fatalf("expected turbidity 15, got %v", result.Record.Turbidity)
	}
	// No reading carried dht_temp, so the average is null, not zero.
	if result.Record.DhtTemp != nil {
		t.Fatalf("expected nil dht_temp, got %v", *result.Record.DhtTemp)
	}
	if hist.count() != 1 {
		t.Fatalf("expected one record, got %d", hist.count())
	}
}

func TestIndependentGreenhouseWindows(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)

	agg.SetClock(fixedClock(t0))
	if _, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 1, DhtTemp: ptr(20), CreatedAt: t0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Greenhouse 2 flushes; greenhouse 1's open window is untouched.
	rt.addRow(2, 30, t0.Add(-20*time.Minute))
	agg.SetClock(fixedClock(t0.Add(time.Minute)))
	result, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 2, DhtTemp: ptr(32), CreatedAt: t0.Add(time.Minute)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aggregated {
		t.Fatal("expected greenhouse 2 window to flush")
	}
	if got := rt.count(1); got != 1 {
		t.Fatalf("greenhouse 1 buffer should be untouched, got %d rows", got)
	}
	if hist.count() != 1 {
		t.Fatalf("expected one record, got %d", hist.count())
	}
}

func TestRawPersistFailureBuffersNothing(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)
	rt.insertErr = apierrors.NewDatabaseError("failed to insert realtime reading", errors.New("connection reset"))

	_, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 1, DhtTemp: ptr(20), CreatedAt: t0})
	if err == nil {
		t.Fatal("expected error from failed persist")
	}
	if rt.count(1) != 0 || hist.count() != 0 {
		t.Fatal("expected no partial state after failed persist")
	}
}

func TestCommitFailureKeepsBuffer(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)
	hist.insertErr = errors.New("disk full")

	rt.addRow(1, 20, t0.Add(-20*time.Minute))
	agg.SetClock(fixedClock(t0))

	_, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 1, DhtTemp: ptr(22), CreatedAt: t0})
	if err == nil {
		t.Fatal("expected aggregation commit error")
	}
	if !apierrors.IsAggregation(err) {
		t.Fatalf("expected aggregation error type, got %v", err)
	}

	// Nothing was lost: both readings await the next trigger.
	if got := rt.count(1); got != 2 {
		t.Fatalf("expected 2 buffered rows after failed commit, got %d", got)
	}
	if hist.count() != 0 {
		t.Fatalf("expected no historical record, got %d", hist.count())
	}

	// The next trigger retries the flush.
	hist.insertErr = nil
	agg.SetClock(fixedClock(t0.Add(time.Minute)))
	result, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 1, DhtTemp: ptr(24), CreatedAt: t0.Add(time.Minute)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aggregated {
		t.Fatal("expected retried flush to succeed")
	}
	if *result.Record.DhtTemp != 22 {
		t.Fatalf("expected average (20+22+24)/3 = 22, got %v", *result.Record.DhtTemp)
	}
}

func TestFlushSparesReadingArrivingAfterSnapshot(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)

	rt.addRow(1, 20, t0.Add(-20*time.Minute))

	// A reading lands between the flush snapshot and the delete. It must
	// survive into the next window.
	rt.onBuffered = func(m *memRealtime) {
		m.addRow(1, 99, t0.Add(time.Second))
	}

	agg.SetClock(fixedClock(t0))
	result, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 1, DhtTemp: ptr(22), CreatedAt: t0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aggregated {
		t.Fatal("expected flush")
	}
	if *result.Record.DhtTemp != 21 {
		t.Fatalf("expected average over snapshot only (20+22)/2 = 21, got %v", *result.Record.DhtTemp)
	}
	if got := rt.count(1); got != 1 {
		t.Fatalf("expected late reading to survive the flush, got %d rows", got)
	}
	if hist.count() != 1 {
		t.Fatalf("expected one record, got %d", hist.count())
	}
}

func TestConcurrentIngestFlushesOnce(t *testing.T) {
	agg, rt, hist := newTestAggregator(15 * time.Minute)

	rt.addRow(1, 20, t0.Add(-20*time.Minute))
	agg.SetClock(fixedClock(t0))

	const workers = 8
	var wg sync.WaitGroup
	flushes := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := agg.Ingest(context.Background(), &models.SensorReading{
				GreenhouseID: 1, DhtTemp: ptr(25), CreatedAt: t0,
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			flushes <- result.Aggregated
		}()
	}
	wg.Wait()
	close(flushes)

	flushed := 0
	for aggregated := range flushes {
		if aggregated {
			flushed++
		}
	}
	if flushed != 1 {
		t.Fatalf("expected exactly one flush across concurrent ingests, got %d", flushed)
	}
	if hist.count() != 1 {
		t.Fatalf("expected exactly one historical record, got %d", hist.count())
	}
}

func TestOnFlushCallback(t *testing.T) {
	agg, rt, _ := newTestAggregator(15 * time.Minute)

	var flushedFor int64
	agg.OnFlush(func(record *models.HistoricalRecord) {
		flushedFor = record.GreenhouseID
	})

	rt.addRow(7, 20, t0.Add(-16*time.Minute))
	agg.SetClock(fixedClock(t0))
	if _, err := agg.Ingest(context.Background(), &models.SensorReading{GreenhouseID: 7, DhtTemp: ptr(20), CreatedAt: t0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flushedFor != 7 {
		t.Fatalf("expected flush callback for greenhouse 7, got %d", flushedFor)
	}
}
