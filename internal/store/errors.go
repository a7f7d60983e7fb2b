package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrDomainNotFound, ErrRunNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a domain with the same name in an organization).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrRunConflict is returned by RunStore.Create when a queued or running
	// run already exists for the entity. At most one non-terminal run may
	// exist per entity at a time; this is the only concurrency control
	// protecting an entity's external refs.
	ErrRunConflict = errors.New("a provisioning run is already in flight for this entity")

	// Entity-specific "not found" errors

	// ErrDomainNotFound indicates that the requested domain does not exist in the store.
	ErrDomainNotFound = fmt.Errorf("%w: domain", ErrNotFound)

	// ErrMailboxNotFound indicates that the requested mailbox does not exist in the store.
	ErrMailboxNotFound = fmt.Errorf("%w: mailbox", ErrNotFound)

	// ErrRunNotFound indicates that the requested run does not exist in the store.
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// ErrOrganizationNotFound indicates that the requested organization does not exist.
	ErrOrganizationNotFound = fmt.Errorf("%w: organization", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrDomainNameExists indicates that the organization already has a domain
	// with the given name.
	ErrDomainNameExists = fmt.Errorf("%w: domain name", ErrDuplicate)

	// ErrMailboxAddressExists indicates that a mailbox with the given address
	// already exists.
	ErrMailboxAddressExists = fmt.Errorf("%w: mailbox address", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "domain", "run")
	Operation string // The operation that failed (e.g., "create", "transition_status")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
