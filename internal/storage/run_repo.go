package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sschoedel/paper-search/internal/models"
)

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) CreateRun(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO collection_runs (started_at, status)
VALUES ($1, $2) RETURNING id`, time.Now().UTC(), models.RunRunning).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create collection run: %w", err)
	}
	return id, nil
}

// CompleteRun performs the single terminal update of a run record.
func (r *RunRepo) CompleteRun(ctx context.Context, id int64, status models.RunStatus, collected, processed int, errorMessage string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE collection_runs
SET completed_at = $1, status = $2, papers_collected = $3,
    papers_processed = $4, error_message = NULLIF($5,'')
WHERE id = $6`,
		time.Now().UTC(), status, collected, processed, errorMessage, id)
	if err != nil {
		return fmt.Errorf("complete collection run %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: collection run %d", ErrNotFound, id)
	}
	return nil
}

func (r *RunRepo) GetRun(ctx context.Context, id int64) (models.CollectionRun, error) {
	var run models.CollectionRun
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, started_at, completed_at, status, papers_collected, papers_processed, COALESCE(error_message,'')
FROM collection_runs WHERE id = $1`, id).
		Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Status,
			&run.PapersCollected, &run.PapersProcessed, &run.ErrorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CollectionRun{}, fmt.Errorf("%w: collection run %d", ErrNotFound, id)
		}
		return models.CollectionRun{}, fmt.Errorf("get collection run %d: %w", id, err)
	}
	return run, nil
}
