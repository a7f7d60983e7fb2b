package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/platform/logger"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// PostgresRunStore implements the store.RunStore interface using a
// PostgreSQL database as the storage backend. Terminal-run immutability is
// enforced in SQL: every status update carries a status guard, so a
// duplicate completion signal affects zero rows and is treated as a no-op.
type PostgresRunStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRunStore creates a new PostgreSQL implementation of the
// RunStore interface. If logger is nil, a default logger will be used.
func NewPostgresRunStore(db store.DBTX, logger *slog.Logger) *PostgresRunStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRunStore{
		db:     db,
		logger: logger.With(slog.String("component", "run_store")),
	}
}

// Ensure PostgresRunStore implements store.RunStore interface
var _ store.RunStore = (*PostgresRunStore)(nil)

// WithTx returns a new RunStore that uses the provided transaction.
func (s *PostgresRunStore) WithTx(tx *sql.Tx) store.RunStore {
	return &PostgresRunStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.RunStore.Create.
// The one-non-terminal-run-per-entity rule is enforced by the partial
// unique index on provisioning_runs(entity_id); hitting it surfaces as
// store.ErrRunConflict.
func (s *PostgresRunStore) Create(ctx context.Context, run *domain.Run) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := run.Validate(); err != nil {
		log.Warn("run validation failed during create",
			slog.String("error", err.Error()),
			slog.String("run_id", run.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	initiatedBy := uuid.NullUUID{}
	if run.InitiatedBy != nil {
		initiatedBy = uuid.NullUUID{UUID: *run.InitiatedBy, Valid: true}
	}

	query := `
		INSERT INTO provisioning_runs (id, entity_type, entity_id, organization_id, initiated_by, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.EntityType,
		run.EntityID,
		run.OrganizationID,
		initiatedBy,
		run.Status,
		run.ErrorMessage,
		run.CreatedAt,
	)

	if err != nil {
		mapped := MapError(err)
		if IsUniqueViolation(err) {
			log.Warn("run creation rejected, run already in flight",
				slog.String("entity_id", run.EntityID.String()))
		} else {
			log.Error("failed to create run",
				slog.String("error", err.Error()),
				slog.String("run_id", run.ID.String()))
		}
		return mapped
	}

	log.Debug("run created",
		slog.String("run_id", run.ID.String()),
		slog.String("entity_id", run.EntityID.String()))
	return nil
}

// GetByID implements store.RunStore.GetByID.
func (s *PostgresRunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, entity_type, entity_id, organization_id, initiated_by, status, error_message, created_at, started_at, finished_at
		FROM provisioning_runs
		WHERE id = $1
	`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListByEntity implements store.RunStore.ListByEntity.
func (s *PostgresRunStore) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*domain.Run, error) {
	query := `
		SELECT id, entity_type, entity_id, organization_id, initiated_by, status, error_message, created_at, started_at, finished_at
		FROM provisioning_runs
		WHERE entity_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// MarkRunning implements store.RunStore.MarkRunning.
func (s *PostgresRunStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE provisioning_runs
		SET status = $2, started_at = $3
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`
	return s.guardedUpdate(ctx, id, query, domain.RunStatusRunning, time.Now().UTC())
}

// MarkSucceeded implements store.RunStore.MarkSucceeded.
func (s *PostgresRunStore) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE provisioning_runs
		SET status = $2, finished_at = $3
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`
	return s.guardedUpdate(ctx, id, query, domain.RunStatusSucceeded, time.Now().UTC())
}

// MarkFailed implements store.RunStore.MarkFailed.
func (s *PostgresRunStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE provisioning_runs
		SET status = $2, finished_at = $3, error_message = $7
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`
	result, err := s.db.ExecContext(ctx, query,
		id,
		domain.RunStatusFailed,
		time.Now().UTC(),
		domain.RunStatusSucceeded,
		domain.RunStatusFailed,
		domain.RunStatusCanceled,
		errMsg,
	)
	if err != nil {
		return MapError(err)
	}
	return s.resolveGuardOutcome(ctx, log, id, result, domain.RunStatusFailed)
}

// MarkCanceled implements store.RunStore.MarkCanceled.
func (s *PostgresRunStore) MarkCanceled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE provisioning_runs
		SET status = $2, finished_at = $3
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`
	return s.guardedUpdate(ctx, id, query, domain.RunStatusCanceled, time.Now().UTC())
}

// guardedUpdate executes a status update that skips terminal runs.
func (s *PostgresRunStore) guardedUpdate(
	ctx context.Context,
	id uuid.UUID,
	query string,
	status domain.RunStatus,
	at time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query,
		id,
		status,
		at,
		domain.RunStatusSucceeded,
		domain.RunStatusFailed,
		domain.RunStatusCanceled,
	)
	if err != nil {
		return MapError(err)
	}
	return s.resolveGuardOutcome(ctx, log, id, result, status)
}

// resolveGuardOutcome distinguishes a missing run from a duplicate
// completion signal when a guarded update affected zero rows.
func (s *PostgresRunStore) resolveGuardOutcome(
	ctx context.Context,
	log *slog.Logger,
	id uuid.UUID,
	result sql.Result,
	status domain.RunStatus,
) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		log.Debug("run status updated",
			slog.String("run_id", id.String()),
			slog.String("status", string(status)))
		return nil
	}

	// Zero rows: either the run doesn't exist or it is already terminal.
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	log.Debug("duplicate completion signal ignored, run already terminal",
		slog.String("run_id", id.String()),
		slog.String("requested_status", string(status)))
	return nil
}

// scanRun maps a provisioning_runs row onto a domain.Run.
func scanRun(row rowScanner) (*domain.Run, error) {
	var (
		run         domain.Run
		initiatedBy uuid.NullUUID
		errMsg      sql.NullString
		startedAt   sql.NullTime
		finishedAt  sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.EntityType,
		&run.EntityID,
		&run.OrganizationID,
		&initiatedBy,
		&run.Status,
		&errMsg,
		&run.CreatedAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	if initiatedBy.Valid {
		id := initiatedBy.UUID
		run.InitiatedBy = &id
	}
	run.ErrorMessage = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}
