package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mailfoundry/mailfoundry/internal/domain"
)

// DomainStore defines the interface for domain entity persistence.
// Version: 1.0
type DomainStore interface {
	// Create saves a new domain to the store.
	// It handles domain validation internally.
	// Returns ErrDomainNameExists if the organization already has a domain
	// with the same name.
	Create(ctx context.Context, d *domain.Domain) error

	// GetByID retrieves a domain by its unique ID.
	// Returns ErrDomainNotFound if the domain does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Domain, error)

	// GetByName retrieves a domain by organization and name.
	// Returns ErrDomainNotFound if the domain does not exist.
	GetByName(ctx context.Context, orgID uuid.UUID, name string) (*domain.Domain, error)

	// TransitionStatus atomically updates the domain's status and merges
	// refs into its external refs map. Keys already present are never
	// overwritten; this preserves identifiers collected by earlier steps.
	// Returns the post-update snapshot so callers observe exactly what was
	// persisted.
	// Returns ErrDomainNotFound if the domain does not exist.
	TransitionStatus(ctx context.Context, id uuid.UUID, status domain.DomainStatus, refs domain.ExternalRefs) (*domain.Domain, error)

	// Delete removes a domain. It exists only as the compensating action
	// for a failed creation sequence; provisioned domains are never
	// hard-deleted by this subsystem.
	// Returns ErrDomainNotFound if the domain does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new DomainStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) DomainStore
}
