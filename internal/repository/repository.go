// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/verdant-labs/greenhub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
)

// GreenhouseRepository defines the interface for the read-only greenhouse registry
type GreenhouseRepository interface {
	List(ctx context.Context) ([]*models.Greenhouse, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// RealtimeRepository defines the interface for the per-greenhouse raw-reading
// buffer awaiting aggregation
type RealtimeRepository interface {
	Insert(ctx context.Context, reading *models.SensorReading) (int64, error)
	// Buffered returns all rows currently buffered for a greenhouse, id ascending.
	Buffered(ctx context.Context, greenhouseID int64) ([]models.SensorReading, error)
	// DeleteThrough clears buffered rows up to and including maxID. Rows inserted
	// after the flush snapshot was taken keep their place in the next window.
	DeleteThrough(ctx context.Context, greenhouseID, maxID int64) error
}

// HistoricalRepository defines the interface for the append-only aggregated store
type HistoricalRepository interface {
	Insert(ctx context.Context, record *models.HistoricalRecord) (int64, error)
	// ListRange returns rows with created_at in [from, to], ascending.
	ListRange(ctx context.Context, greenhouseID int64, from, to time.Time) ([]models.HistoricalRecord, error)
	Latest(ctx context.Context, greenhouseID int64) (*models.HistoricalRecord, error)
	DeleteOld(ctx context.Context, before time.Time) (int64, error)
}
