package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mailfoundry/mailfoundry/internal/domain"
)

// RunStore defines the interface for the provisioning run ledger.
// The ledger is append-mostly: runs are created in the queued status and
// move through running to exactly one terminal status, after which they
// are immutable.
// Version: 1.0
type RunStore interface {
	// Create saves a new run to the store. The run must be in the queued
	// status. Returns ErrRunConflict if a queued or running run already
	// exists for the run's entity; at most one non-terminal run may exist
	// per entity at a time.
	Create(ctx context.Context, run *domain.Run) error

	// GetByID retrieves a run by its unique ID.
	// Returns ErrRunNotFound if the run does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// ListByEntity retrieves all runs for the given entity ordered by
	// creation time, oldest first.
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*domain.Run, error)

	// MarkRunning moves a queued run to running and records the start time.
	// It is an idempotent no-op if the run is already terminal.
	MarkRunning(ctx context.Context, id uuid.UUID) error

	// MarkSucceeded moves a run to succeeded and records the finish time.
	// It is an idempotent no-op if the run is already terminal.
	MarkSucceeded(ctx context.Context, id uuid.UUID) error

	// MarkFailed moves a run to failed, records the finish time, and stores
	// the failure message. It is an idempotent no-op if the run is already
	// terminal.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error

	// MarkCanceled moves a run to canceled and records the finish time.
	// It is an idempotent no-op if the run is already terminal.
	MarkCanceled(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new RunStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) RunStore
}
