package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DomainStatus represents the provisioning state of a registered domain.
type DomainStatus string

// Possible domain status values
const (
	DomainStatusPendingDNS DomainStatus = "pending_dns"
	DomainStatusActive     DomainStatus = "active"
	DomainStatusError      DomainStatus = "error"
)

// SourceProvider selects which registration path applies to a domain.
type SourceProvider string

// Possible source provider values
const (
	// SourceProviderPlatform registers the domain through the platform's
	// own registrar account.
	SourceProviderPlatform SourceProvider = "platform_registrar"

	// SourceProviderImported confirms a registration the organization
	// transferred into the platform's registrar.
	SourceProviderImported SourceProvider = "imported_registrar"

	// SourceProviderExternal marks a domain already registered elsewhere;
	// only DNS setup runs for it.
	SourceProviderExternal SourceProvider = "external"
)

// Common validation errors for Domain
var (
	ErrEmptyDomainID         = errors.New("domain ID cannot be empty")
	ErrEmptyDomainOrgID      = errors.New("domain organization ID cannot be empty")
	ErrEmptyDomainName       = errors.New("domain name cannot be empty")
	ErrInvalidDomainName     = errors.New("domain name must contain at least one dot")
	ErrInvalidDomainStatus   = errors.New("invalid domain status")
	ErrInvalidSourceProvider = errors.New("invalid source provider")
)

// Domain represents a registered (or to-be-registered) internet domain owned
// by exactly one organization. Ownership never changes after creation.
type Domain struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	Name           string         `json:"name"`
	Status         DomainStatus   `json:"status"`
	SourceProvider SourceProvider `json:"source_provider"`
	Tags           []string       `json:"tags,omitempty"`
	AutoRenew      bool           `json:"auto_renew"`
	ExternalRefs   ExternalRefs   `json:"external_refs"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewDomain creates a new Domain in the pending_dns status with an empty
// external refs map. Returns an error if validation fails.
func NewDomain(orgID uuid.UUID, name string, source SourceProvider, tags []string, autoRenew bool) (*Domain, error) {
	d := &Domain{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           strings.ToLower(strings.TrimSpace(name)),
		Status:         DomainStatusPendingDNS,
		SourceProvider: source,
		Tags:           tags,
		AutoRenew:      autoRenew,
		ExternalRefs:   ExternalRefs{},
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Validate checks if the Domain has valid data.
// Returns an error if any field fails validation.
func (d *Domain) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDomainID
	}

	if d.OrganizationID == uuid.Nil {
		return ErrEmptyDomainOrgID
	}

	if d.Name == "" {
		return ErrEmptyDomainName
	}

	if !strings.Contains(d.Name, ".") {
		return ErrInvalidDomainName
	}

	if !isValidDomainStatus(d.Status) {
		return ErrInvalidDomainStatus
	}

	if !IsValidSourceProvider(d.SourceProvider) {
		return ErrInvalidSourceProvider
	}

	return nil
}

// IsTerminal reports whether the domain has reached a status in which its
// external refs are frozen.
func (d *Domain) IsTerminal() bool {
	return d.Status == DomainStatusActive || d.Status == DomainStatusError
}

// isValidDomainStatus checks if the given status is a valid DomainStatus.
func isValidDomainStatus(status DomainStatus) bool {
	switch status {
	case DomainStatusPendingDNS, DomainStatusActive, DomainStatusError:
		return true
	default:
		return false
	}
}

// IsValidSourceProvider checks if the given value is a recognized
// SourceProvider.
func IsValidSourceProvider(source SourceProvider) bool {
	switch source {
	case SourceProviderPlatform, SourceProviderImported, SourceProviderExternal:
		return true
	default:
		return false
	}
}
