package service

import (
	"errors"
	"fmt"

	"github.com/mailfoundry/mailfoundry/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotMember indicates the requesting user is not a verified member of
	// the target organization. No entity or run is created when this is
	// returned. API layer should map this to HTTP 403 Forbidden.
	ErrNotMember = errors.New("user is not a verified member of the organization")

	// ErrEntityNotFound indicates that no domain or mailbox exists with the
	// given identifier. API layer should map this to HTTP 404 Not Found.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrRunConflict indicates a queued or running run already exists for
	// the entity; a new one cannot be started until it reaches a terminal
	// status. API layer should map this to HTTP 409 Conflict.
	ErrRunConflict = errors.New("a provisioning run is already in flight for this entity")

	// ErrInvalidMailboxCount indicates a mailbox batch request with a
	// non-positive count. API layer should map this to HTTP 400 Bad Request.
	ErrInvalidMailboxCount = errors.New("mailbox count must be positive")
)

// ProvisioningError wraps errors from the provisioning service with context.
// Step identifies the provider step that failed, when the failure came from
// a provider; it is empty for persistence failures.
type ProvisioningError struct {
	// Operation is the operation that failed (e.g., "create_domain", "retry_provisioning")
	Operation string
	// Step is the provider step that raised, if any (e.g., "register_domain")
	Step string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ProvisioningError.
func (e *ProvisioningError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("provisioning %s failed at step %s: %s: %v", e.Operation, e.Step, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("provisioning %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("provisioning %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// NewProvisioningError creates a new ProvisioningError.
// It maps known store sentinels onto their service-level counterparts first,
// so callers can match with errors.Is without knowing about the store layer.
func NewProvisioningError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotMember) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrRunConflict) ||
		errors.Is(err, ErrInvalidMailboxCount) {
		return err
	}

	if errors.Is(err, store.ErrRunConflict) {
		return ErrRunConflict
	}
	if store.IsNotFoundError(err) {
		return ErrEntityNotFound
	}

	return &ProvisioningError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewStepError creates a ProvisioningError for a provider step failure.
func NewStepError(operation, step string, err error) error {
	if err == nil {
		return nil
	}
	return &ProvisioningError{
		Operation: operation,
		Step:      step,
		Message:   "provider step failed",
		Err:       err,
	}
}

// errNilDependency reports a missing constructor dependency.
func errNilDependency(name string) error {
	return fmt.Errorf("%s cannot be nil", name)
}
