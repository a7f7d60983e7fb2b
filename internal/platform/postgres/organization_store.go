package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// PostgresOrganizationStore implements store.OrganizationStore and
// store.MembershipStore against the organization tables owned by the
// account subsystem. This package only ever reads them.
type PostgresOrganizationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOrganizationStore creates a new read-only organization store.
// If logger is nil, a default logger will be used.
func NewPostgresOrganizationStore(db store.DBTX, logger *slog.Logger) *PostgresOrganizationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrganizationStore{
		db:     db,
		logger: logger.With(slog.String("component", "organization_store")),
	}
}

// Interface conformance checks
var (
	_ store.OrganizationStore = (*PostgresOrganizationStore)(nil)
	_ store.MembershipStore   = (*PostgresOrganizationStore)(nil)
)

// GetByID implements store.OrganizationStore.GetByID.
func (s *PostgresOrganizationStore) GetByID(ctx context.Context, id uuid.UUID) (*store.Organization, error) {
	query := `
		SELECT id, name, billing_email, sending_platform_api_key
		FROM organizations
		WHERE id = $1
	`

	var (
		org    store.Organization
		apiKey sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.BillingEmail,
		&apiKey,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, mapped
	}

	org.SendingPlatformAPIKey = apiKey.String
	return &org, nil
}

// IsMember implements store.MembershipStore.IsMember. Only verified
// memberships count.
func (s *PostgresOrganizationStore) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organization_members
			WHERE organization_id = $1 AND user_id = $2 AND verified
		)
	`

	var isMember bool
	if err := s.db.QueryRowContext(ctx, query, orgID, userID).Scan(&isMember); err != nil {
		return false, MapError(err)
	}
	return isMember, nil
}
