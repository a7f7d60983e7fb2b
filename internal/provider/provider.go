package provider

import (
	"context"

	"github.com/google/uuid"
)

// RegistrationResult is returned by a successful registrar call.
type RegistrationResult struct {
	// OrderID is the registrar's identifier for the registration order.
	OrderID string
}

// ZoneResult is returned by a successful DNS zone creation.
type ZoneResult struct {
	ZoneID      string
	Nameservers []string
}

// Record is a single DNS record to apply to a zone.
type Record struct {
	Type    string // e.g. "TXT", "MX"
	Name    string // record name, e.g. "_dmarc.example.com"
	Content string
	TTL     int // seconds; 0 means the provider default
}

// AccountProfile describes the mailbox account to create on the mailbox host.
type AccountProfile struct {
	Address     string
	DisplayName string
}

// AccountResult is returned by a successful mailbox-host account creation.
type AccountResult struct {
	AccountID string
}

// SenderProfile describes the mailbox to register with a sending platform.
type SenderProfile struct {
	Address     string
	DisplayName string
}

// SenderResult is returned by a successful sending-platform registration.
type SenderResult struct {
	ExternalID string
}

// KeyValidation reports whether a sending-platform API key is usable.
type KeyValidation struct {
	Valid bool

	// Detail carries the platform's explanation when Valid is false.
	Detail string
}

// Registrar registers domains (or confirms imported registrations) with a
// domain registrar.
type Registrar interface {
	// Register places (or confirms) a registration order for the domain
	// name and returns the registrar's order identifier. A domain already
	// registered to this account yields the existing order identifier.
	// Failures are *Error values with CategoryRegistrar.
	Register(ctx context.Context, domainName string) (RegistrationResult, error)
}

// DNSProvider manages DNS zones and records.
type DNSProvider interface {
	// CreateZone creates a hosted zone for the domain name and returns the
	// zone identifier and the nameservers to delegate to. An existing zone
	// for the same name yields that zone's identifiers.
	// Failures are *Error values with CategoryDNS.
	CreateZone(ctx context.Context, domainName string) (ZoneResult, error)

	// ApplyRecords upserts the given records into the zone.
	// Failures are *Error values with CategoryDNS.
	ApplyRecords(ctx context.Context, zoneID string, records []Record) error
}

// MailboxHost creates email accounts on the hosting provider.
type MailboxHost interface {
	// CreateAccount creates the account for the mailbox entity and returns
	// the host's account identifier. An account already existing for the
	// same address yields the existing identifier.
	// Failures are *Error values with CategoryMailboxHost.
	CreateAccount(ctx context.Context, mailboxID uuid.UUID, profile AccountProfile) (AccountResult, error)
}

// SendingPlatform registers mailboxes with the organization's outbound
// sending platform.
type SendingPlatform interface {
	// AddMailbox registers the mailbox under the organization's API key and
	// returns the platform's identifier for it. A mailbox already
	// registered yields the existing identifier.
	// Failures are *Error values with CategorySendingPlatform.
	AddMailbox(ctx context.Context, apiKey string, profile SenderProfile) (SenderResult, error)

	// ValidateAPIKey checks whether the API key is accepted by the
	// platform. A definitive "invalid key" answer is not an error; errors
	// represent failure to reach a verdict.
	ValidateAPIKey(ctx context.Context, apiKey string) (KeyValidation, error)
}
