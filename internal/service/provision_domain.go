package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/events"
	"github.com/mailfoundry/mailfoundry/internal/provider"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// CreateDomain implements ProvisioningService.CreateDomain.
//
// Sequence: membership check, entity creation, usage event (best-effort),
// run creation, synchronous run execution. If run creation fails after the
// entity was persisted, the entity creation is compensated by deleting it
// so no entity is left without a ledger entry.
func (s *provisioningService) CreateDomain(ctx context.Context, req CreateDomainRequest) (*CreateDomainResult, error) {
	if err := s.requireMembership(ctx, req.OrganizationID, req.UserID); err != nil {
		return nil, err
	}

	d, err := domain.NewDomain(req.OrganizationID, req.Name, req.SourceProvider, req.Tags, req.AutoRenew)
	if err != nil {
		return nil, NewProvisioningError("create_domain", "invalid domain", err)
	}

	if err := s.domains.Create(ctx, d); err != nil {
		return nil, NewProvisioningError("create_domain", "failed to create domain", err)
	}

	s.recordUsage(ctx, req.OrganizationID, events.CodeDomainCreated, map[string]string{
		"domain_id":   d.ID.String(),
		"domain_name": d.Name,
	})

	run, err := s.createRun(ctx, domain.EntityTypeDomain, d.ID, req.OrganizationID, &req.UserID, func(cctx context.Context) error {
		return s.domains.Delete(cctx, d.ID)
	})
	if err != nil {
		return nil, NewProvisioningError("create_domain", "failed to create provisioning run", err)
	}

	execErr := s.executeRun(ctx, "create_domain", run, s.domainTarget(d), s.domainSteps(d))

	result, err := s.domainSnapshot(ctx, d.ID, run.ID)
	if err != nil {
		return nil, err
	}
	return result, execErr
}

// createRun persists a new run and compensates the entity creation when the
// ledger insert fails. The compensation is best-effort: its own failure is
// logged and the original error still wins.
func (s *provisioningService) createRun(
	ctx context.Context,
	entityType domain.EntityType,
	entityID, orgID uuid.UUID,
	initiatedBy *uuid.UUID,
	compensate func(context.Context) error,
) (*domain.Run, error) {
	run, err := domain.NewRun(entityType, entityID, orgID, initiatedBy)
	if err != nil {
		return nil, err
	}

	if err := s.runs.Create(ctx, run); err != nil {
		if compensate != nil {
			if cerr := compensate(context.WithoutCancel(ctx)); cerr != nil {
				s.logger.ErrorContext(ctx, "failed to compensate entity creation",
					"error", cerr,
					"entity_id", entityID)
			}
		}
		return nil, err
	}

	return run, nil
}

// domainSnapshot fetches the persisted state of a domain and its run after
// execution, so callers see exactly what the ledger recorded.
func (s *provisioningService) domainSnapshot(ctx context.Context, domainID, runID uuid.UUID) (*CreateDomainResult, error) {
	d, err := s.domains.GetByID(ctx, domainID)
	if err != nil {
		return nil, NewProvisioningError("create_domain", "failed to reload domain", err)
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, NewProvisioningError("create_domain", "failed to reload run", err)
	}
	return &CreateDomainResult{Domain: d, Run: run}, nil
}

// domainSteps builds the step sequence for a domain run. Registration only
// applies to domains sourced through a registrar; externally hosted domains
// start straight at zone creation.
//
// All steps are idempotent against the providers, so retry runs replay the
// full sequence from scratch and already-complete steps simply confirm
// their existing identifiers.
func (s *provisioningService) domainSteps(d *domain.Domain) []step {
	var steps []step

	if d.SourceProvider == domain.SourceProviderPlatform || d.SourceProvider == domain.SourceProviderImported {
		steps = append(steps, step{
			name: StepRegisterDomain,
			fn: func(ctx context.Context, _ domain.ExternalRefs) (domain.ExternalRefs, error) {
				res, err := s.providers.Registrar.Register(ctx, d.Name)
				if err != nil {
					return nil, err
				}
				return domain.ExternalRefs{domain.RefOrderID: res.OrderID}, nil
			},
		})
	}

	steps = append(steps,
		step{
			name: StepCreateZone,
			fn: func(ctx context.Context, _ domain.ExternalRefs) (domain.ExternalRefs, error) {
				res, err := s.providers.DNS.CreateZone(ctx, d.Name)
				if err != nil {
					return nil, err
				}
				return domain.ExternalRefs{
					domain.RefZoneID:      res.ZoneID,
					domain.RefNameservers: strings.Join(res.Nameservers, ","),
				}, nil
			},
		},
		step{
			name: StepApplyRecords,
			fn: func(ctx context.Context, acc domain.ExternalRefs) (domain.ExternalRefs, error) {
				zoneID := acc[domain.RefZoneID]
				if err := s.providers.DNS.ApplyRecords(ctx, zoneID, provider.BaselineRecords(d.Name)); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
	)

	return steps
}

// domainRunTarget adapts a domain entity to the run executor.
type domainRunTarget struct {
	store store.DomainStore
	d     *domain.Domain
}

func (s *provisioningService) domainTarget(d *domain.Domain) domainRunTarget {
	return domainRunTarget{store: s.domains, d: d}
}

func (t domainRunTarget) entityKey() string { return t.d.Name }

func (t domainRunTarget) startRefs() domain.ExternalRefs { return t.d.ExternalRefs }

func (t domainRunTarget) mergeRefs(ctx context.Context, refs domain.ExternalRefs) error {
	_, err := t.store.TransitionStatus(ctx, t.d.ID, domain.DomainStatusPendingDNS, refs)
	return err
}

func (t domainRunTarget) markReady(ctx context.Context) error {
	_, err := t.store.TransitionStatus(ctx, t.d.ID, domain.DomainStatusActive, nil)
	return err
}

func (t domainRunTarget) markError(ctx context.Context, refs domain.ExternalRefs) error {
	_, err := t.store.TransitionStatus(ctx, t.d.ID, domain.DomainStatusError, refs)
	return err
}

func (t domainRunTarget) withTx(tx *sql.Tx) runTarget {
	return domainRunTarget{store: t.store.WithTx(tx), d: t.d}
}
