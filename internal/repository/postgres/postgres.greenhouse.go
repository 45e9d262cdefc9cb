// FilePath: internal/repository/postgres/postgres.greenhouse.go
package postgres

import (
	"context"

	"github.com/verdant-labs/greenhub/internal/database"
	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
)

// GreenhouseRepo reads the greenhouse registry. Rows are provisioned out of
// band; the hub only ever lists them and checks existence.
type GreenhouseRepo struct {
	db database.DB
}

func NewGreenhouseRepository(db database.DB) (*GreenhouseRepo, error) {
	repo := &GreenhouseRepo{db: db}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *GreenhouseRepo) initializeSchema() error {
	query := `CREATE TABLE IF NOT EXISTS greenhouses (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`

	if _, err := r.db.GetDB().Exec(query); err != nil {
		return errors.NewDatabaseError("failed to initialize greenhouses schema", err)
	}
	return nil
}

func (r *GreenhouseRepo) List(ctx context.Context) ([]*models.Greenhouse, error) {
	greenhouses := []*models.Greenhouse{}
	query := `SELECT id, name FROM greenhouses ORDER BY id`

	err := r.db.GetDB().SelectContext(ctx, &greenhouses, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list greenhouses", err)
	}
	return greenhouses, nil
}

func (r *GreenhouseRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM greenhouses WHERE id = $1)`

	err := r.db.GetDB().GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, errors.NewDatabaseError("failed to check greenhouse existence", err)
	}
	return exists, nil
}
