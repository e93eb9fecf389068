package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/txpull/sourcecheck/db"
	"github.com/txpull/sourcecheck/db/models"
)

// Registry is the read side of the job lifecycle (spec §6's getVerificationJob),
// kept separate from Pool since callers that only need job status don't need
// a running pool.
type Registry struct {
	pg *db.Postgres
}

// NewRegistry builds a Registry over pg.
func NewRegistry(pg *db.Postgres) *Registry {
	return &Registry{pg: pg}
}

// Get fetches a job's current state by id.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*models.VerificationJob, error) {
	return models.GetJob(ctx, r.pg, id)
}
