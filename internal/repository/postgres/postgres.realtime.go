// FilePath: internal/repository/postgres/postgres.realtime.go
package postgres

import (
	"context"

	"github.com/verdant-labs/greenhub/internal/database"
	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
)

// RealtimeRepo is the durable per-greenhouse buffer of raw readings awaiting
// aggregation. Rows only ever leave through DeleteThrough after a flush.
type RealtimeRepo struct {
	db database.DB
}

func NewRealtimeRepository(db database.DB) (*RealtimeRepo, error) {
	repo := &RealtimeRepo{db: db}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RealtimeRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS realtime_data (
			id BIGSERIAL PRIMARY KEY,
			greenhouse_id BIGINT NOT NULL REFERENCES greenhouses(id),
			dht_temp DOUBLE PRECISION,
			dht_hum DOUBLE PRECISION,
			turbidity DOUBLE PRECISION,
			water_temp DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_realtime_data_greenhouse_id
			ON realtime_data(greenhouse_id, id)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize realtime_data schema", err)
		}
	}
	return nil
}

func (r *RealtimeRepo) Insert(ctx context.Context, reading *models.SensorReading) (int64, error) {
	var id int64
	query := `
		INSERT INTO realtime_data (greenhouse_id, dht_temp, dht_hum, turbidity, water_temp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.GetDB().GetContext(ctx, &id, query,
		reading.GreenhouseID, reading.DhtTemp, reading.DhtHum,
		reading.Turbidity, reading.WaterTemp, reading.CreatedAt)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to insert realtime reading", err)
	}
	return id, nil
}

func (r *RealtimeRepo) Buffered(ctx context.Context, greenhouseID int64) ([]models.SensorReading, error) {
	readings := []models.SensorReading{}
	query := `
		SELECT id, greenhouse_id, dht_temp, dht_hum, turbidity, water_temp, created_at
		FROM realtime_data
		WHERE greenhouse_id = $1
		ORDER BY id ASC`

	err := r.db.GetDB().SelectContext(ctx, &readings, query, greenhouseID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to load buffered readings", err)
	}
	return readings, nil
}

func (r *RealtimeRepo) DeleteThrough(ctx context.Context, greenhouseID, maxID int64) error {
	query := `DELETE FROM realtime_data WHERE greenhouse_id = $1 AND id <= $2`

	_, err := r.db.GetDB().ExecContext(ctx, query, greenhouseID, maxID)
	if err != nil {
		return errors.NewDatabaseError("failed to clear flushed readings", err)
	}
	return nil
}
