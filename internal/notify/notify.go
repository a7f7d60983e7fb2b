// Package notify informs organizations about provisioning failures. The
// orchestrator treats notification as fire-and-forget: a notifier error is
// logged and swallowed, never propagated, so a broken notification channel
// can't mask the provider error that caused the failure.
//
// Rendering and delivering the actual email belongs to the transactional
// mail collaborator; the shipped implementation records the notification as
// a structured log record for that pipeline to pick up.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a provisioning-failure notice to the organization.
type Notifier interface {
	// ProvisioningFailed notifies the organization's billing contact that
	// provisioning of the named entity (a domain name or mailbox address)
	// failed for the given reason.
	ProvisioningFailed(ctx context.Context, billingEmail, entityKey, reason string) error
}

// LogNotifier implements Notifier by emitting a structured log record.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
// If logger is nil, a default logger will be used.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		logger: logger.With(slog.String("component", "failure_notifier")),
	}
}

// Ensure LogNotifier implements Notifier
var _ Notifier = (*LogNotifier)(nil)

// ProvisioningFailed implements Notifier.ProvisioningFailed.
func (n *LogNotifier) ProvisioningFailed(ctx context.Context, billingEmail, entityKey, reason string) error {
	n.logger.WarnContext(ctx, "provisioning failed, organization notified",
		slog.String("billing_email", billingEmail),
		slog.String("entity", entityKey),
		slog.String("reason", reason))
	return nil
}
