package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// RetryProvisioning implements ProvisioningService.RetryProvisioning.
//
// The entity ID is resolved as a domain first, then as a mailbox. The new
// run has no initiating user; retries are system-initiated. The full step
// sequence replays from scratch and relies on provider idempotency:
// already-complete steps confirm their existing identifiers and the
// append-only refs merge keeps the values recorded the first time.
func (s *provisioningService) RetryProvisioning(ctx context.Context, entityID uuid.UUID) (*domain.Run, error) {
	if d, err := s.domains.GetByID(ctx, entityID); err == nil {
		return s.retryDomain(ctx, d)
	} else if !errors.Is(err, store.ErrDomainNotFound) {
		return nil, NewProvisioningError("retry_provisioning", "failed to load domain", err)
	}

	m, err := s.mailboxes.GetByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, store.ErrMailboxNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, NewProvisioningError("retry_provisioning", "failed to load mailbox", err)
	}
	return s.retryMailbox(ctx, m)
}

func (s *provisioningService) retryDomain(ctx context.Context, d *domain.Domain) (*domain.Run, error) {
	run, err := s.createRun(ctx, domain.EntityTypeDomain, d.ID, d.OrganizationID, nil, nil)
	if err != nil {
		return nil, NewProvisioningError("retry_provisioning", "failed to create provisioning run", err)
	}

	execErr := s.executeRun(ctx, "retry_provisioning", run, s.domainTarget(d), s.domainSteps(d))

	snap, err := s.runs.GetByID(ctx, run.ID)
	if err != nil {
		return nil, NewProvisioningError("retry_provisioning", "failed to reload run", err)
	}
	return snap, execErr
}

func (s *provisioningService) retryMailbox(ctx context.Context, m *domain.Mailbox) (*domain.Run, error) {
	org, err := s.orgs.GetByID(ctx, m.OrganizationID)
	if err != nil {
		return nil, NewProvisioningError("retry_provisioning", "failed to load organization", err)
	}

	run, err := s.createRun(ctx, domain.EntityTypeMailbox, m.ID, m.OrganizationID, nil, nil)
	if err != nil {
		return nil, NewProvisioningError("retry_provisioning", "failed to create provisioning run", err)
	}

	execErr := s.executeRun(ctx, "retry_provisioning", run, s.mailboxTarget(m), s.mailboxSteps(m, org))

	snap, err := s.runs.GetByID(ctx, run.ID)
	if err != nil {
		return nil, NewProvisioningError("retry_provisioning", "failed to reload run", err)
	}
	return snap, execErr
}
