package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mailfoundry/mailfoundry/internal/domain"
)

// MailboxStore defines the interface for mailbox entity persistence.
// Version: 1.0
type MailboxStore interface {
	// Create saves a new mailbox to the store.
	// It handles domain validation internally.
	// Returns ErrMailboxAddressExists if a mailbox with the same address
	// already exists.
	Create(ctx context.Context, m *domain.Mailbox) error

	// GetByID retrieves a mailbox by its unique ID.
	// Returns ErrMailboxNotFound if the mailbox does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Mailbox, error)

	// ListByDomain retrieves all mailboxes on the given domain, ordered by
	// creation time.
	ListByDomain(ctx context.Context, domainID uuid.UUID) ([]*domain.Mailbox, error)

	// TransitionStatus atomically updates the mailbox's status and merges
	// refs into its external refs map. Keys already present are never
	// overwritten. Returns the post-update snapshot.
	// Returns ErrMailboxNotFound if the mailbox does not exist.
	TransitionStatus(ctx context.Context, id uuid.UUID, status domain.MailboxStatus, refs domain.ExternalRefs) (*domain.Mailbox, error)

	// Delete removes a mailbox. It exists only as the compensating action
	// for a failed creation sequence.
	// Returns ErrMailboxNotFound if the mailbox does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new MailboxStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MailboxStore
}
