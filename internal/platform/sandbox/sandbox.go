// Package sandbox provides in-process implementations of the provider
// adapter interfaces. The server wires them in when no vendor credentials
// are configured, and service tests use them as scriptable fakes.
//
// All four providers honor the adapter idempotency contract: repeating a
// call for the same input returns the identifier issued the first time.
// Failure injection is done through the FailFunc hooks, which are consulted
// before any state changes.
package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mailfoundry/mailfoundry/internal/provider"
)

// Registrar is an in-memory provider.Registrar.
type Registrar struct {
	mu     sync.Mutex
	orders map[string]string
	seq    int

	// FailFunc, when set, is consulted before each call; a non-nil return
	// is raised instead of registering.
	FailFunc func(domainName string) error
}

// NewRegistrar creates an empty sandbox registrar.
func NewRegistrar() *Registrar {
	return &Registrar{orders: make(map[string]string)}
}

// Register implements provider.Registrar.
func (r *Registrar) Register(ctx context.Context, domainName string) (provider.RegistrationResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.RegistrationResult{}, provider.NewError(provider.CategoryRegistrar, provider.ReasonUnreachable, "register canceled", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailFunc != nil {
		if err := r.FailFunc(domainName); err != nil {
			return provider.RegistrationResult{}, err
		}
	}

	// Re-registration of a known domain returns the original order.
	if orderID, ok := r.orders[domainName]; ok {
		return provider.RegistrationResult{OrderID: orderID}, nil
	}

	r.seq++
	orderID := fmt.Sprintf("sbx-order-%06d", r.seq)
	r.orders[domainName] = orderID
	return provider.RegistrationResult{OrderID: orderID}, nil
}

// DNS is an in-memory provider.DNSProvider.
type DNS struct {
	mu      sync.Mutex
	zones   map[string]provider.ZoneResult
	records map[string]map[string]provider.Record
	seq     int

	// FailZoneFunc, when set, is consulted before CreateZone.
	FailZoneFunc func(domainName string) error

	// FailRecordsFunc, when set, is consulted before ApplyRecords.
	FailRecordsFunc func(zoneID string) error
}

// NewDNS creates an empty sandbox DNS provider.
func NewDNS() *DNS {
	return &DNS{
		zones:   make(map[string]provider.ZoneResult),
		records: make(map[string]map[string]provider.Record),
	}
}

// CreateZone implements provider.DNSProvider.
func (d *DNS) CreateZone(ctx context.Context, domainName string) (provider.ZoneResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.ZoneResult{}, provider.NewError(provider.CategoryDNS, provider.ReasonUnreachable, "create zone canceled", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailZoneFunc != nil {
		if err := d.FailZoneFunc(domainName); err != nil {
			return provider.ZoneResult{}, err
		}
	}

	// An existing zone for the same name is an "already exists" success.
	if zone, ok := d.zones[domainName]; ok {
		return zone, nil
	}

	d.seq++
	zone := provider.ZoneResult{
		ZoneID: fmt.Sprintf("sbx-zone-%06d", d.seq),
		Nameservers: []string{
			"ns1.sandbox-dns.test",
			"ns2.sandbox-dns.test",
		},
	}
	d.zones[domainName] = zone
	d.records[zone.ZoneID] = make(map[string]provider.Record)
	return zone, nil
}

// ApplyRecords implements provider.DNSProvider. Records are upserted keyed
// by type and name.
func (d *DNS) ApplyRecords(ctx context.Context, zoneID string, records []provider.Record) error {
	if err := ctx.Err(); err != nil {
		return provider.NewError(provider.CategoryDNS, provider.ReasonUnreachable, "apply records canceled", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailRecordsFunc != nil {
		if err := d.FailRecordsFunc(zoneID); err != nil {
			return err
		}
	}

	zoneRecords, ok := d.records[zoneID]
	if !ok {
		return provider.NewError(provider.CategoryDNS, provider.ReasonRejected,
			fmt.Sprintf("zone %s does not exist", zoneID), nil)
	}

	for _, rec := range records {
		zoneRecords[rec.Type+"|"+rec.Name] = rec
	}
	return nil
}

// RecordCount returns the number of records stored for the zone.
// Intended for tests and dev-mode inspection.
func (d *DNS) RecordCount(zoneID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records[zoneID])
}

// MailboxHost is an in-memory provider.MailboxHost.
type MailboxHost struct {
	mu       sync.Mutex
	accounts map[string]string
	seq      int

	// FailFunc, when set, is consulted before each call.
	FailFunc func(profile provider.AccountProfile) error
}

// NewMailboxHost creates an empty sandbox mailbox host.
func NewMailboxHost() *MailboxHost {
	return &MailboxHost{accounts: make(map[string]string)}
}

// CreateAccount implements provider.MailboxHost.
func (h *MailboxHost) CreateAccount(ctx context.Context, mailboxID uuid.UUID, profile provider.AccountProfile) (provider.AccountResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.AccountResult{}, provider.NewError(provider.CategoryMailboxHost, provider.ReasonUnreachable, "create account canceled", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.FailFunc != nil {
		if err := h.FailFunc(profile); err != nil {
			return provider.AccountResult{}, err
		}
	}

	if accountID, ok := h.accounts[profile.Address]; ok {
		return provider.AccountResult{AccountID: accountID}, nil
	}

	h.seq++
	accountID := fmt.Sprintf("sbx-acct-%06d", h.seq)
	h.accounts[profile.Address] = accountID
	return provider.AccountResult{AccountID: accountID}, nil
}

// SendingPlatform is an in-memory provider.SendingPlatform. Any non-empty
// API key that has not been revoked is accepted.
type SendingPlatform struct {
	mu        sync.Mutex
	mailboxes map[string]string
	revoked   map[string]bool
	seq       int

	// FailFunc, when set, is consulted before AddMailbox.
	FailFunc func(profile provider.SenderProfile) error
}

// NewSendingPlatform creates an empty sandbox sending platform.
func NewSendingPlatform() *SendingPlatform {
	return &SendingPlatform{
		mailboxes: make(map[string]string),
		revoked:   make(map[string]bool),
	}
}

// RevokeKey marks an API key invalid for subsequent validations.
func (p *SendingPlatform) RevokeKey(apiKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[apiKey] = true
}

// AddMailbox implements provider.SendingPlatform.
func (p *SendingPlatform) AddMailbox(ctx context.Context, apiKey string, profile provider.SenderProfile) (provider.SenderResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.SenderResult{}, provider.NewError(provider.CategorySendingPlatform, provider.ReasonUnreachable, "add mailbox canceled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailFunc != nil {
		if err := p.FailFunc(profile); err != nil {
			return provider.SenderResult{}, err
		}
	}

	if apiKey == "" || p.revoked[apiKey] {
		return provider.SenderResult{}, provider.NewError(provider.CategorySendingPlatform, provider.ReasonRejected, "invalid api key", nil)
	}

	key := apiKey + "|" + profile.Address
	if externalID, ok := p.mailboxes[key]; ok {
		return provider.SenderResult{ExternalID: externalID}, nil
	}

	p.seq++
	externalID := fmt.Sprintf("sbx-sender-%06d", p.seq)
	p.mailboxes[key] = externalID
	return provider.SenderResult{ExternalID: externalID}, nil
}

// ValidateAPIKey implements provider.SendingPlatform.
func (p *SendingPlatform) ValidateAPIKey(ctx context.Context, apiKey string) (provider.KeyValidation, error) {
	if err := ctx.Err(); err != nil {
		return provider.KeyValidation{}, provider.NewError(provider.CategorySendingPlatform, provider.ReasonUnreachable, "validate key canceled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if apiKey == "" {
		return provider.KeyValidation{Valid: false, Detail: "empty api key"}, nil
	}
	if p.revoked[apiKey] {
		return provider.KeyValidation{Valid: false, Detail: "api key revoked"}, nil
	}
	return provider.KeyValidation{Valid: true}, nil
}

// Interface conformance checks
var (
	_ provider.Registrar       = (*Registrar)(nil)
	_ provider.DNSProvider     = (*DNS)(nil)
	_ provider.MailboxHost     = (*MailboxHost)(nil)
	_ provider.SendingPlatform = (*SendingPlatform)(nil)
)
