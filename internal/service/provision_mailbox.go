package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/events"
	"github.com/mailfoundry/mailfoundry/internal/provider"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// CreateMailboxes implements ProvisioningService.CreateMailboxes.
//
// Each mailbox in the batch gets its own entity and run, and each run
// executes independently: a provider failure for one mailbox leaves its
// siblings untouched, already-succeeded mailboxes stay active, and the
// caller inspects per-run statuses in the result. A persistence failure
// while building the batch aborts it; mailboxes already fully created keep
// their runs.
func (s *provisioningService) CreateMailboxes(ctx context.Context, req CreateMailboxesRequest) (*CreateMailboxesResult, error) {
	if err := s.requireMembership(ctx, req.OrganizationID, req.UserID); err != nil {
		return nil, err
	}

	if req.Count <= 0 {
		return nil, ErrInvalidMailboxCount
	}
	if len(req.NamePatterns) == 0 {
		return nil, NewProvisioningError("create_mailboxes", "at least one name pattern is required", domain.ErrEmptyMailboxAddress)
	}

	d, err := s.domains.GetByID(ctx, req.DomainID)
	if err != nil {
		return nil, NewProvisioningError("create_mailboxes", "failed to load domain", err)
	}
	if d.OrganizationID != req.OrganizationID {
		// Domains in other organizations are indistinguishable from absent.
		return nil, ErrEntityNotFound
	}

	org, err := s.orgs.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return nil, NewProvisioningError("create_mailboxes", "failed to load organization", err)
	}

	addresses := generateAddresses(req.NamePatterns, d.Name, req.Count)

	result := &CreateMailboxesResult{
		Mailboxes: make([]*domain.Mailbox, 0, req.Count),
		Runs:      make([]*domain.Run, 0, req.Count),
	}

	for _, address := range addresses {
		m, run, err := s.createMailboxWithRun(ctx, req, d, address)
		if err != nil {
			return result, err
		}

		// Execution failures are recorded on the mailbox and its run; the
		// batch keeps going.
		if execErr := s.executeRun(ctx, "create_mailboxes", run, s.mailboxTarget(m), s.mailboxSteps(m, org)); execErr != nil {
			s.logger.WarnContext(ctx, "mailbox provisioning failed within batch",
				"address", m.Address,
				"run_id", run.ID,
				"error", execErr)
		}

		snapM, snapRun, err := s.mailboxSnapshot(ctx, m.ID, run.ID)
		if err != nil {
			return result, err
		}
		result.Mailboxes = append(result.Mailboxes, snapM)
		result.Runs = append(result.Runs, snapRun)
	}

	return result, nil
}

// createMailboxWithRun persists one mailbox entity, records its usage
// event, and opens its run. Run-creation failure compensates the entity.
func (s *provisioningService) createMailboxWithRun(ctx context.Context, req CreateMailboxesRequest, d *domain.Domain, address string) (*domain.Mailbox, *domain.Run, error) {
	m, err := domain.NewMailbox(req.OrganizationID, d.ID, address)
	if err != nil {
		return nil, nil, NewProvisioningError("create_mailboxes", "invalid mailbox", err)
	}

	if err := s.mailboxes.Create(ctx, m); err != nil {
		return nil, nil, NewProvisioningError("create_mailboxes", "failed to create mailbox", err)
	}

	s.recordUsage(ctx, req.OrganizationID, events.CodeMailboxCreated, map[string]string{
		"mailbox_id": m.ID.String(),
		"address":    m.Address,
	})

	run, err := s.createRun(ctx, domain.EntityTypeMailbox, m.ID, req.OrganizationID, &req.UserID, func(cctx context.Context) error {
		return s.mailboxes.Delete(cctx, m.ID)
	})
	if err != nil {
		return nil, nil, NewProvisioningError("create_mailboxes", "failed to create provisioning run", err)
	}

	return m, run, nil
}

// mailboxSnapshot reloads a mailbox and its run after execution.
func (s *provisioningService) mailboxSnapshot(ctx context.Context, mailboxID, runID uuid.UUID) (*domain.Mailbox, *domain.Run, error) {
	m, err := s.mailboxes.GetByID(ctx, mailboxID)
	if err != nil {
		return nil, nil, NewProvisioningError("create_mailboxes", "failed to reload mailbox", err)
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, NewProvisioningError("create_mailboxes", "failed to reload run", err)
	}
	return m, run, nil
}

// generateAddresses derives count addresses from the name patterns,
// cycling through the patterns and suffixing repeats with a counter so
// every address within the batch is unique. Patterns are lowercased;
// "sales" on example.com yields sales@example.com, then sales2@example.com
// on its second use.
func generateAddresses(patterns []string, domainName string, count int) []string {
	addresses := make([]string, 0, count)
	used := make(map[string]int, count)

	for i := 0; i < count; i++ {
		local := strings.ToLower(strings.TrimSpace(patterns[i%len(patterns)]))
		used[local]++
		if n := used[local]; n > 1 {
			local = fmt.Sprintf("%s%d", local, n)
		}
		addresses = append(addresses, local+"@"+domainName)
	}

	return addresses
}

// mailboxSteps builds the step sequence for a mailbox run: account creation
// on the mailbox host, then registration with the organization's sending
// platform when one is configured. Organizations without a sending-platform
// API key skip the second step entirely.
func (s *provisioningService) mailboxSteps(m *domain.Mailbox, org *store.Organization) []step {
	steps := []step{
		{
			name: StepCreateAccount,
			fn: func(ctx context.Context, _ domain.ExternalRefs) (domain.ExternalRefs, error) {
				res, err := s.providers.MailboxHost.CreateAccount(ctx, m.ID, provider.AccountProfile{
					Address:     m.Address,
					DisplayName: m.LocalPart(),
				})
				if err != nil {
					return nil, err
				}
				return domain.ExternalRefs{domain.RefAccountID: res.AccountID}, nil
			},
		},
	}

	if org.SendingPlatformAPIKey != "" {
		steps = append(steps, step{
			name: StepAddToPlatform,
			fn: func(ctx context.Context, _ domain.ExternalRefs) (domain.ExternalRefs, error) {
				// Pre-flight the organization's key so a revoked key fails
				// with a clear verdict instead of a vendor rejection. A
				// validation error is not a verdict; registration proceeds
				// and surfaces the real failure, if any.
				verdict, err := s.providers.SendingPlatform.ValidateAPIKey(ctx, org.SendingPlatformAPIKey)
				switch {
				case err != nil:
					s.logger.WarnContext(ctx, "sending platform key validation inconclusive", "error", err)
				case !verdict.Valid:
					return nil, provider.NewError(provider.CategorySendingPlatform, provider.ReasonRejected,
						"sending platform api key invalid: "+verdict.Detail, nil)
				}

				res, err := s.providers.SendingPlatform.AddMailbox(ctx, org.SendingPlatformAPIKey, provider.SenderProfile{
					Address:     m.Address,
					DisplayName: m.LocalPart(),
				})
				if err != nil {
					return nil, err
				}
				return domain.ExternalRefs{domain.RefExternalID: res.ExternalID}, nil
			},
		})
	}

	return steps
}

// mailboxRunTarget adapts a mailbox entity to the run executor.
type mailboxRunTarget struct {
	store store.MailboxStore
	m     *domain.Mailbox
}

func (s *provisioningService) mailboxTarget(m *domain.Mailbox) mailboxRunTarget {
	return mailboxRunTarget{store: s.mailboxes, m: m}
}

func (t mailboxRunTarget) entityKey() string { return t.m.Address }

func (t mailboxRunTarget) startRefs() domain.ExternalRefs { return t.m.ExternalRefs }

func (t mailboxRunTarget) mergeRefs(ctx context.Context, refs domain.ExternalRefs) error {
	_, err := t.store.TransitionStatus(ctx, t.m.ID, domain.MailboxStatusProvisioning, refs)
	return err
}

func (t mailboxRunTarget) markReady(ctx context.Context) error {
	_, err := t.store.TransitionStatus(ctx, t.m.ID, domain.MailboxStatusActive, nil)
	return err
}

func (t mailboxRunTarget) markError(ctx context.Context, refs domain.ExternalRefs) error {
	_, err := t.store.TransitionStatus(ctx, t.m.ID, domain.MailboxStatusError, refs)
	return err
}

func (t mailboxRunTarget) withTx(tx *sql.Tx) runTarget {
	return mailboxRunTarget{store: t.store.WithTx(tx), m: t.m}
}
