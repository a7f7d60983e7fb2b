package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Usage event codes emitted by the provisioning subsystem.
const (
	// CodeDomainCreated is recorded once per created domain record.
	CodeDomainCreated = "domain_created"

	// CodeMailboxCreated is recorded once per created mailbox record.
	CodeMailboxCreated = "mailbox_created"
)

// Common validation errors for UsageEvent
var (
	ErrEmptyEventID    = errors.New("usage event ID cannot be empty")
	ErrEmptyEventOrgID = errors.New("usage event organization ID cannot be empty")
	ErrEmptyEventCode  = errors.New("usage event code cannot be empty")
	ErrInvalidQuantity = errors.New("usage event quantity must be positive")
)

// UsageEvent represents one billable occurrence attributed to an
// organization. RelatedRefs links the event back to the records it bills
// for (e.g. {"domain_id": "..."}).
type UsageEvent struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Code           string            `json:"code"`
	Quantity       int               `json:"quantity"`
	RelatedRefs    map[string]string `json:"related_refs,omitempty"`
	EffectiveAt    time.Time         `json:"effective_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewUsageEvent creates a new UsageEvent effective at the given time.
// Returns an error if validation fails.
func NewUsageEvent(orgID uuid.UUID, code string, quantity int, relatedRefs map[string]string, effectiveAt time.Time) (*UsageEvent, error) {
	e := &UsageEvent{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Code:           code,
		Quantity:       quantity,
		RelatedRefs:    relatedRefs,
		EffectiveAt:    effectiveAt.UTC(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// Validate checks if the UsageEvent has valid data.
func (e *UsageEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEventID
	}

	if e.OrganizationID == uuid.Nil {
		return ErrEmptyEventOrgID
	}

	if e.Code == "" {
		return ErrEmptyEventCode
	}

	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	return nil
}

// Recorder persists usage events. Implementations must be safe for
// concurrent use. Callers treat recording as best-effort and must not fail
// their enclosing operation when Record returns an error.
type Recorder interface {
	// Record persists the given usage event.
	Record(ctx context.Context, event *UsageEvent) error
}
