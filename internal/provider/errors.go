package provider

import (
	"errors"
	"fmt"
)

// Category identifies which provider boundary an error came from.
type Category string

// Provider categories
const (
	CategoryRegistrar       Category = "registrar"
	CategoryDNS             Category = "dns"
	CategoryMailboxHost     Category = "mailbox_host"
	CategorySendingPlatform Category = "sending_platform"
)

// Reason is a vendor-neutral sub-classification of a provider failure,
// preserved for diagnostics. Adapters map vendor response codes onto these.
type Reason string

// Failure reasons
const (
	ReasonUnavailable Reason = "unavailable"  // resource cannot be obtained (e.g. domain taken)
	ReasonRejected    Reason = "rejected"     // vendor refused the request
	ReasonRateLimited Reason = "rate_limited" // vendor throttled the request
	ReasonUnreachable Reason = "unreachable"  // transport-level failure
	ReasonUnknown     Reason = "unknown"
)

// Error is the uniform error type raised by all provider adapters. The
// orchestrator records its message into the run ledger and the entity's
// external refs; the category and reason survive for diagnostics.
type Error struct {
	Category Category
	Reason   Reason
	Message  string
	Err      error // Original vendor error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider error (%s): %s: %v", e.Category, e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error (%s): %s", e.Category, e.Reason, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a provider error for the given category.
func NewError(category Category, reason Reason, message string, err error) *Error {
	return &Error{
		Category: category,
		Reason:   reason,
		Message:  message,
		Err:      err,
	}
}

// AsProviderError returns the *Error inside err, or nil if err does not
// wrap one.
func AsProviderError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// IsProviderError reports whether err is (or wraps) a provider error.
func IsProviderError(err error) bool {
	return AsProviderError(err) != nil
}
