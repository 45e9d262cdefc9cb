// FilePath: internal/repository/postgres/postgres.historical.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/internal/database"
	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
)

// HistoricalRepo is the append-only store of aggregated records. Rows come
// from window flushes or the synchronous sensor-insert endpoint; nothing
// updates them afterwards.
type HistoricalRepo struct {
	db database.DB
}

func NewHistoricalRepository(db database.DB) (*HistoricalRepo, error) {
	repo := &HistoricalRepo{db: db}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *HistoricalRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS historical_data (
			id BIGSERIAL PRIMARY KEY,
			greenhouse_id BIGINT NOT NULL REFERENCES greenhouses(id),
			dht_temp DOUBLE PRECISION,
			dht_hum DOUBLE PRECISION,
			turbidity DOUBLE PRECISION,
			water_temp DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historical_data_greenhouse_created
			ON historical_data(greenhouse_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize historical_data schema", err)
		}
	}
	return nil
}

func (r *HistoricalRepo) Insert(ctx context.Context, record *models.HistoricalRecord) (int64, error) {
	var id int64
	query := `
		INSERT INTO historical_data (greenhouse_id, dht_temp, dht_hum, turbidity, water_temp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.GetDB().GetContext(ctx, &id, query,
		record.GreenhouseID, record.DhtTemp, record.DhtHum,
		record.Turbidity, record.WaterTemp, record.CreatedAt)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to insert historical record", err)
	}
	return id, nil
}

func (r *HistoricalRepo) ListRange(ctx context.Context, greenhouseID int64, from, to time.Time) ([]models.HistoricalRecord, error) {
	records := []models.HistoricalRecord{}
	query := `
		SELECT id, greenhouse_id, dht_temp, dht_hum, turbidity, water_temp, created_at
		FROM historical_data
		WHERE greenhouse_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at ASC`

	err := r.db.GetDB().SelectContext(ctx, &records, query, greenhouseID, from, to)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list historical records", err)
	}
	return records, nil
}

func (r *HistoricalRepo) Latest(ctx context.Context, greenhouseID int64) (*models.HistoricalRecord, error) {
	record := &models.HistoricalRecord{}
	query := `
		SELECT id, greenhouse_id, dht_temp, dht_hum, turbidity, water_temp, created_at
		FROM historical_data
		WHERE greenhouse_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, record, query, greenhouseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no historical data for greenhouse", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest historical record", err)
	}
	return record, nil
}

func (r *HistoricalRepo) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM historical_data WHERE created_at < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete old historical records", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[HistoricalRepo] Deleted %d historical records older than %v", rows, before)
	return rows, nil
}
