package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a provisioning run.
type RunStatus string

// Possible run status values
const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// EntityType identifies which kind of entity a run provisions.
type EntityType string

// Possible entity type values
const (
	EntityTypeDomain  EntityType = "domain"
	EntityTypeMailbox EntityType = "mailbox"
)

// Common validation errors for Run
var (
	ErrEmptyRunID        = errors.New("run ID cannot be empty")
	ErrEmptyRunEntityID  = errors.New("run entity ID cannot be empty")
	ErrEmptyRunOrgID     = errors.New("run organization ID cannot be empty")
	ErrInvalidRunStatus  = errors.New("invalid run status")
	ErrInvalidEntityType = errors.New("invalid entity type")
)

// Run records one attempt to provision an entity end-to-end. A run is
// append-mostly: once it reaches succeeded, failed, or canceled it is
// immutable, and an entity's displayed status must always be derivable
// from its most recent terminal run.
type Run struct {
	ID             uuid.UUID  `json:"id"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       uuid.UUID  `json:"entity_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`

	// InitiatedBy is the user who requested the run, or nil for
	// system-initiated runs (retries, reconciliation).
	InitiatedBy *uuid.UUID `json:"initiated_by,omitempty"`

	Status       RunStatus  `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// NewRun creates a new Run in the queued status for the given entity.
// initiatedBy may be nil for system-initiated runs.
// Returns an error if validation fails.
func NewRun(entityType EntityType, entityID, orgID uuid.UUID, initiatedBy *uuid.UUID) (*Run, error) {
	r := &Run{
		ID:             uuid.New(),
		EntityType:     entityType,
		EntityID:       entityID,
		OrganizationID: orgID,
		InitiatedBy:    initiatedBy,
		Status:         RunStatusQueued,
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the Run has valid data.
// Returns an error if any field fails validation.
func (r *Run) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRunID
	}

	if r.EntityID == uuid.Nil {
		return ErrEmptyRunEntityID
	}

	if r.OrganizationID == uuid.Nil {
		return ErrEmptyRunOrgID
	}

	if !isValidEntityType(r.EntityType) {
		return ErrInvalidEntityType
	}

	if !r.Status.IsValid() {
		return ErrInvalidRunStatus
	}

	return nil
}

// IsTerminal reports whether the run has reached an immutable status.
func (r *Run) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// IsValid checks if the status is a recognized RunStatus.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusQueued, RunStatusRunning, RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is one of succeeded, failed, or
// canceled.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// isValidEntityType checks if the given value is a recognized EntityType.
func isValidEntityType(t EntityType) bool {
	switch t {
	case EntityTypeDomain, EntityTypeMailbox:
		return true
	default:
		return false
	}
}
