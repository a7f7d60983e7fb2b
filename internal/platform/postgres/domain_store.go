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

// PostgresDomainStore implements the store.DomainStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDomainStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDomainStore creates a new PostgreSQL implementation of the
// DomainStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresDomainStore(db store.DBTX, logger *slog.Logger) *PostgresDomainStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDomainStore{
		db:     db,
		logger: logger.With(slog.String("component", "domain_store")),
	}
}

// Ensure PostgresDomainStore implements store.DomainStore interface
var _ store.DomainStore = (*PostgresDomainStore)(nil)

// WithTx returns a new DomainStore that uses the provided transaction.
func (s *PostgresDomainStore) WithTx(tx *sql.Tx) store.DomainStore {
	return &PostgresDomainStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.DomainStore.Create.
// Returns store.ErrDomainNameExists if the organization already has a
// domain with the same name.
func (s *PostgresDomainStore) Create(ctx context.Context, d *domain.Domain) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := d.Validate(); err != nil {
		log.Warn("domain validation failed during create",
			slog.String("error", err.Error()),
			slog.String("domain_id", d.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	refs, err := json.Marshal(d.ExternalRefs)
	if err != nil {
		return fmt.Errorf("failed to marshal external refs: %w", err)
	}
	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO domains (id, organization_id, name, status, source_provider, tags, auto_renew, external_refs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		d.ID,
		d.OrganizationID,
		d.Name,
		d.Status,
		d.SourceProvider,
		tags,
		d.AutoRenew,
		refs,
		d.CreatedAt,
		d.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create domain",
			slog.String("error", err.Error()),
			slog.String("domain_id", d.ID.String()),
			slog.String("name", d.Name))
		return MapError(err)
	}

	log.Debug("domain created",
		slog.String("domain_id", d.ID.String()),
		slog.String("name", d.Name))
	return nil
}

// GetByID implements store.DomainStore.GetByID.
func (s *PostgresDomainStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Domain, error) {
	query := `
		SELECT id, organization_id, name, status, source_provider, tags, auto_renew, external_refs, created_at, updated_at
		FROM domains
		WHERE id = $1
	`
	d, err := s.scanDomain(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrDomainNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByName implements store.DomainStore.GetByName.
func (s *PostgresDomainStore) GetByName(ctx context.Context, orgID uuid.UUID, name string) (*domain.Domain, error) {
	query := `
		SELECT id, organization_id, name, status, source_provider, tags, auto_renew, external_refs, created_at, updated_at
		FROM domains
		WHERE organization_id = $1 AND name = $2
	`
	d, err := s.scanDomain(s.db.QueryRowContext(ctx, query, orgID, name))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrDomainNotFound
		}
		return nil, err
	}
	return d, nil
}

// TransitionStatus implements store.DomainStore.TransitionStatus.
// The refs merge happens in SQL with domain.ExternalRefs.MergeTransition
// semantics: identifier keys already present keep their values, so the
// append-only invariant holds even under concurrent readers, while the
// error key is rewritten from the incoming map on every transition.
func (s *PostgresDomainStore) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.DomainStatus,
	refs domain.ExternalRefs,
) (*domain.Domain, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	incoming, err := json.Marshal(refs.Clone())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal external refs: %w", err)
	}

	query := `
		UPDATE domains
		SET status = $2,
		    external_refs = ($3::jsonb - 'error') || (external_refs - 'error')
		        || CASE WHEN $3::jsonb ? 'error'
		                THEN jsonb_build_object('error', $3::jsonb -> 'error')
		                ELSE '{}'::jsonb END,
		    updated_at = $4
		WHERE id = $1
		RETURNING id, organization_id, name, status, source_provider, tags, auto_renew, external_refs, created_at, updated_at
	`
	d, err := s.scanDomain(s.db.QueryRowContext(ctx, query, id, status, incoming, time.Now().UTC()))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrDomainNotFound
		}
		log.Error("failed to transition domain status",
			slog.String("error", err.Error()),
			slog.String("domain_id", id.String()),
			slog.String("status", string(status)))
		return nil, err
	}

	log.Debug("domain status transitioned",
		slog.String("domain_id", id.String()),
		slog.String("status", string(status)))
	return d, nil
}

// Delete implements store.DomainStore.Delete.
func (s *PostgresDomainStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "domain"); err != nil {
		return store.ErrDomainNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDomain maps a domains row onto a domain.Domain.
func (s *PostgresDomainStore) scanDomain(row rowScanner) (*domain.Domain, error) {
	var (
		d       domain.Domain
		tagsRaw []byte
		refsRaw []byte
	)

	err := row.Scan(
		&d.ID,
		&d.OrganizationID,
		&d.Name,
		&d.Status,
		&d.SourceProvider,
		&tagsRaw,
		&d.AutoRenew,
		&refsRaw,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &d.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	d.ExternalRefs = domain.ExternalRefs{}
	if len(refsRaw) > 0 {
		if err := json.Unmarshal(refsRaw, &d.ExternalRefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal external refs: %w", err)
		}
	}

	return &d, nil
}
