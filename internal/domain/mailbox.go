package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MailboxStatus represents the provisioning state of a mailbox.
type MailboxStatus string

// Possible mailbox status values
const (
	MailboxStatusProvisioning MailboxStatus = "provisioning"
	MailboxStatusActive       MailboxStatus = "active"
	MailboxStatusError        MailboxStatus = "error"
)

// Common validation errors for Mailbox
var (
	ErrEmptyMailboxID        = errors.New("mailbox ID cannot be empty")
	ErrEmptyMailboxOrgID     = errors.New("mailbox organization ID cannot be empty")
	ErrEmptyMailboxDomainID  = errors.New("mailbox domain ID cannot be empty")
	ErrEmptyMailboxAddress   = errors.New("mailbox address cannot be empty")
	ErrInvalidMailboxAddress = errors.New("mailbox address must be a full email address")
	ErrInvalidMailboxStatus  = errors.New("invalid mailbox status")
)

// Mailbox represents a single provisioned email account on one of the
// organization's domains.
type Mailbox struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	DomainID       uuid.UUID     `json:"domain_id"`
	Address        string        `json:"address"`
	Status         MailboxStatus `json:"status"`
	ExternalRefs   ExternalRefs  `json:"external_refs"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewMailbox creates a new Mailbox in the provisioning status with an empty
// external refs map. Returns an error if validation fails.
func NewMailbox(orgID, domainID uuid.UUID, address string) (*Mailbox, error) {
	m := &Mailbox{
		ID:             uuid.New(),
		OrganizationID: orgID,
		DomainID:       domainID,
		Address:        strings.ToLower(strings.TrimSpace(address)),
		Status:         MailboxStatusProvisioning,
		ExternalRefs:   ExternalRefs{},
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks if the Mailbox has valid data.
// Returns an error if any field fails validation.
func (m *Mailbox) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMailboxID
	}

	if m.OrganizationID == uuid.Nil {
		return ErrEmptyMailboxOrgID
	}

	if m.DomainID == uuid.Nil {
		return ErrEmptyMailboxDomainID
	}

	if m.Address == "" {
		return ErrEmptyMailboxAddress
	}

	at := strings.Index(m.Address, "@")
	if at <= 0 || at == len(m.Address)-1 {
		return ErrInvalidMailboxAddress
	}

	if !isValidMailboxStatus(m.Status) {
		return ErrInvalidMailboxStatus
	}

	return nil
}

// IsTerminal reports whether the mailbox has reached a status in which its
// external refs are frozen.
func (m *Mailbox) IsTerminal() bool {
	return m.Status == MailboxStatusActive || m.Status == MailboxStatusError
}

// LocalPart returns the part of the address before the "@".
func (m *Mailbox) LocalPart() string {
	if at := strings.Index(m.Address, "@"); at > 0 {
		return m.Address[:at]
	}
	return m.Address
}

// isValidMailboxStatus checks if the given status is a valid MailboxStatus.
func isValidMailboxStatus(status MailboxStatus) bool {
	switch status {
	case MailboxStatusProvisioning, MailboxStatusActive, MailboxStatusError:
		return true
	default:
		return false
	}
}
