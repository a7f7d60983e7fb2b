package store

import (
	"context"

	"github.com/google/uuid"
)

// Organization holds the slice of organization state this subsystem reads:
// where to send failure notices and which sending-platform integration, if
// any, newly provisioned mailboxes should be registered with. The rest of
// the organization record is owned by external collaborators.
type Organization struct {
	ID           uuid.UUID
	Name         string
	BillingEmail string

	// SendingPlatformAPIKey is empty when the organization has no
	// sending-platform integration configured.
	SendingPlatformAPIKey string
}

// OrganizationStore provides read access to organization records.
// Version: 1.0
type OrganizationStore interface {
	// GetByID retrieves an organization by its unique ID.
	// Returns ErrOrganizationNotFound if the organization does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
}

// MembershipStore answers organization-membership questions. Creation
// requests are rejected unless the calling user is a verified member of
// the target organization.
// Version: 1.0
type MembershipStore interface {
	// IsMember reports whether the user is a verified member of the
	// organization. Unverified memberships count as non-membership.
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}
