package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/platform/logger"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// PostgresMailboxStore implements the store.MailboxStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMailboxStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMailboxStore creates a new PostgreSQL implementation of the
// MailboxStore interface. If logger is nil, a default logger will be used.
func NewPostgresMailboxStore(db store.DBTX, logger *slog.Logger) *PostgresMailboxStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMailboxStore{
		db:     db,
		logger: logger.With(slog.String("component", "mailbox_store")),
	}
}

// Ensure PostgresMailboxStore implements store.MailboxStore interface
var _ store.MailboxStore = (*PostgresMailboxStore)(nil)

// WithTx returns a new MailboxStore that uses the provided transaction.
func (s *PostgresMailboxStore) WithTx(tx *sql.Tx) store.MailboxStore {
	return &PostgresMailboxStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.MailboxStore.Create.
// Returns store.ErrMailboxAddressExists if the address is already taken.
func (s *PostgresMailboxStore) Create(ctx context.Context, m *domain.Mailbox) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		log.Warn("mailbox validation failed during create",
			slog.String("error", err.Error()),
			slog.String("mailbox_id", m.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	refs, err := json.Marshal(m.ExternalRefs)
	if err != nil {
		return fmt.Errorf("failed to marshal external refs: %w", err)
	}

	query := `
		INSERT INTO mailboxes (id, organization_id, domain_id, address, status, external_refs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		m.ID,
		m.OrganizationID,
		m.DomainID,
		m.Address,
		m.Status,
		refs,
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create mailbox",
			slog.String("error", err.Error()),
			slog.String("mailbox_id", m.ID.String()),
			slog.String("address", m.Address))
		return MapError(err)
	}

	log.Debug("mailbox created",
		slog.String("mailbox_id", m.ID.String()),
		slog.String("address", m.Address))
	return nil
}

// GetByID implements store.MailboxStore.GetByID.
func (s *PostgresMailboxStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Mailbox, error) {
	query := `
		SELECT id, organization_id, domain_id, address, status, external_refs, created_at, updated_at
		FROM mailboxes
		WHERE id = $1
	`
	m, err := scanMailbox(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrMailboxNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListByDomain implements store.MailboxStore.ListByDomain.
func (s *PostgresMailboxStore) ListByDomain(ctx context.Context, domainID uuid.UUID) ([]*domain.Mailbox, error) {
	query := `
		SELECT id, organization_id, domain_id, address, status, external_refs, created_at, updated_at
		FROM mailboxes
		WHERE domain_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, domainID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var mailboxes []*domain.Mailbox
	for rows.Next() {
		m, err := scanMailbox(rows)
		if err != nil {
			return nil, err
		}
		mailboxes = append(mailboxes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mailbox rows: %w", err)
	}
	return mailboxes, nil
}

// TransitionStatus implements store.MailboxStore.TransitionStatus with the
// same SQL-side MergeTransition refs semantics as the domain store.
func (s *PostgresMailboxStore) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.MailboxStatus,
	refs domain.ExternalRefs,
) (*domain.Mailbox, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	incoming, err := json.Marshal(refs.Clone())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal external refs: %w", err)
	}

	query := `
		UPDATE mailboxes
		SET status = $2,
		    external_refs = ($3::jsonb - 'error') || (external_refs - 'error')
		        || CASE WHEN $3::jsonb ? 'error'
		                THEN jsonb_build_object('error', $3::jsonb -> 'error')
		                ELSE '{}'::jsonb END,
		    updated_at = $4
		WHERE id = $1
		RETURNING id, organization_id, domain_id, address, status, external_refs, created_at, updated_at
	`
	m, err := scanMailbox(s.db.QueryRowContext(ctx, query, id, status, incoming, time.Now().UTC()))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrMailboxNotFound
		}
		log.Error("failed to transition mailbox status",
			slog.String("error", err.Error()),
			slog.String("mailbox_id", id.String()),
			slog.String("status", string(status)))
		return nil, err
	}

	log.Debug("mailbox status transitioned",
		slog.String("mailbox_id", id.String()),
		slog.String("status", string(status)))
	return m, nil
}

// Delete implements store.MailboxStore.Delete.
func (s *PostgresMailboxStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM mailboxes WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "mailbox"); err != nil {
		return store.ErrMailboxNotFound
	}
	return nil
}

// scanMailbox maps a mailboxes row onto a domain.Mailbox.
func scanMailbox(row rowScanner) (*domain.Mailbox, error) {
	var (
		m       domain.Mailbox
		refsRaw []byte
	)

	err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&m.DomainID,
		&m.Address,
		&m.Status,
		&refsRaw,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	m.ExternalRefs = domain.ExternalRefs{}
	if len(refsRaw) > 0 {
		if err := json.Unmarshal(refsRaw, &m.ExternalRefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal external refs: %w", err)
		}
	}

	return &m, nil
}
