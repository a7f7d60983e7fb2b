package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mailfoundry/mailfoundry/internal/events"
	"github.com/mailfoundry/mailfoundry/internal/platform/logger"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// PostgresUsageEventStore implements the events.Recorder interface using
// a PostgreSQL database as the storage backend.
type PostgresUsageEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageEventStore creates a new PostgreSQL implementation of
// the events.Recorder interface. If logger is nil, a default logger will
// be used.
func NewPostgresUsageEventStore(db store.DBTX, logger *slog.Logger) *PostgresUsageEventStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUsageEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_event_store")),
	}
}

// Ensure PostgresUsageEventStore implements events.Recorder
var _ events.Recorder = (*PostgresUsageEventStore)(nil)

// Record implements events.Recorder.Record.
func (s *PostgresUsageEventStore) Record(ctx context.Context, event *events.UsageEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	relatedRefs, err := json.Marshal(event.RelatedRefs)
	if err != nil {
		return fmt.Errorf("failed to marshal related refs: %w", err)
	}

	query := `
		INSERT INTO usage_events (id, organization_id, code, quantity, related_refs, effective_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.OrganizationID,
		event.Code,
		event.Quantity,
		relatedRefs,
		event.EffectiveAt,
		event.CreatedAt,
	)

	if err != nil {
		log.Error("failed to record usage event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()),
			slog.String("code", event.Code))
		return MapError(err)
	}

	log.Debug("usage event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("code", event.Code))
	return nil
}
