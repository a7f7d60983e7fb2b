package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/events"
	"github.com/mailfoundry/mailfoundry/internal/notify"
	"github.com/mailfoundry/mailfoundry/internal/provider"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// ProvisioningService exposes the provisioning operations of this
// subsystem. Each creation request executes its run synchronously within
// the handling of that request; runs for different entities may execute
// fully in parallel.
type ProvisioningService interface {
	// CreateDomain creates a domain entity and a run, executes the run, and
	// returns both. The result is non-nil whenever the entity and run were
	// created, even if run execution failed; in that case the error carries
	// the provider failure and the returned snapshots show the terminal
	// error state.
	CreateDomain(ctx context.Context, req CreateDomainRequest) (*CreateDomainResult, error)

	// CreateMailboxes creates req.Count mailboxes on the domain, each with
	// its own entity and run. One mailbox's failure does not roll back
	// siblings; callers must inspect each run's status individually.
	CreateMailboxes(ctx context.Context, req CreateMailboxesRequest) (*CreateMailboxesResult, error)

	// RetryProvisioning creates a new run for an existing entity and
	// re-executes the full step sequence from scratch. Returns
	// ErrRunConflict if a run is already in flight and ErrEntityNotFound
	// if no domain or mailbox has the given ID. The returned run is
	// non-nil whenever a run was created, even if its execution failed.
	RetryProvisioning(ctx context.Context, entityID uuid.UUID) (*domain.Run, error)
}

// CreateDomainRequest carries the inputs for CreateDomain.
type CreateDomainRequest struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Name           string
	SourceProvider domain.SourceProvider
	Tags           []string
	AutoRenew      bool
}

// CreateDomainResult is returned by CreateDomain.
type CreateDomainResult struct {
	Domain *domain.Domain
	Run    *domain.Run
}

// CreateMailboxesRequest carries the inputs for CreateMailboxes.
type CreateMailboxesRequest struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	DomainID       uuid.UUID
	Count          int

	// NamePatterns are the local parts to build addresses from. Pattern i
	// serves mailbox i and the list is cycled when Count exceeds it;
	// collisions within the batch get a numeric suffix.
	NamePatterns []string
}

// CreateMailboxesResult is returned by CreateMailboxes. Mailboxes[i] and
// Runs[i] belong together.
type CreateMailboxesResult struct {
	Mailboxes []*domain.Mailbox
	Runs      []*domain.Run
}

// Providers bundles the four provider adapters the orchestrator drives.
type Providers struct {
	Registrar       provider.Registrar
	DNS             provider.DNSProvider
	MailboxHost     provider.MailboxHost
	SendingPlatform provider.SendingPlatform
}

// provisioningService implements the ProvisioningService interface.
type provisioningService struct {
	db        *sql.DB
	domains   store.DomainStore
	mailboxes store.MailboxStore
	runs      store.RunStore
	orgs      store.OrganizationStore
	members   store.MembershipStore
	providers Providers
	usage     events.Recorder
	notifier  notify.Notifier
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewProvisioningService creates a new ProvisioningService.
// It returns an error if any of the required dependencies are nil.
// db may be nil, in which case terminal entity and run transitions are
// written sequentially instead of in one transaction; tracer may be nil,
// in which case spans are no-ops.
func NewProvisioningService(
	db *sql.DB,
	domains store.DomainStore,
	mailboxes store.MailboxStore,
	runs store.RunStore,
	orgs store.OrganizationStore,
	members store.MembershipStore,
	providers Providers,
	usage events.Recorder,
	notifier notify.Notifier,
	tracer trace.Tracer,
	logger *slog.Logger,
) (ProvisioningService, error) {
	switch {
	case domains == nil:
		return nil, errNilDependency("domain store")
	case mailboxes == nil:
		return nil, errNilDependency("mailbox store")
	case runs == nil:
		return nil, errNilDependency("run store")
	case orgs == nil:
		return nil, errNilDependency("organization store")
	case members == nil:
		return nil, errNilDependency("membership store")
	case providers.Registrar == nil:
		return nil, errNilDependency("registrar provider")
	case providers.DNS == nil:
		return nil, errNilDependency("dns provider")
	case providers.MailboxHost == nil:
		return nil, errNilDependency("mailbox host provider")
	case providers.SendingPlatform == nil:
		return nil, errNilDependency("sending platform provider")
	case usage == nil:
		return nil, errNilDependency("usage recorder")
	case notifier == nil:
		return nil, errNilDependency("failure notifier")
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("provisioning")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &provisioningService{
		db:        db,
		domains:   domains,
		mailboxes: mailboxes,
		runs:      runs,
		orgs:      orgs,
		members:   members,
		providers: providers,
		usage:     usage,
		notifier:  notifier,
		tracer:    tracer,
		logger:    logger.With("component", "provisioning_service"),
	}, nil
}

// requireMembership rejects callers who are not verified members of the
// organization. Nothing is created when this fails.
func (s *provisioningService) requireMembership(ctx context.Context, orgID, userID uuid.UUID) error {
	isMember, err := s.members.IsMember(ctx, orgID, userID)
	if err != nil {
		return NewProvisioningError("membership_check", "failed to check organization membership", err)
	}
	if !isMember {
		return ErrNotMember
	}
	return nil
}

// recordUsage records a billable creation event. Recording is best-effort:
// failures are logged and swallowed so they never fail the enclosing
// creation request.
func (s *provisioningService) recordUsage(ctx context.Context, orgID uuid.UUID, code string, relatedRefs map[string]string) {
	event, err := events.NewUsageEvent(orgID, code, 1, relatedRefs, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to build usage event",
			"error", err,
			"org_id", orgID,
			"code", code)
		return
	}

	if err := s.usage.Record(ctx, event); err != nil {
		s.logger.Error("failed to record usage event",
			"error", err,
			"org_id", orgID,
			"code", code,
			"event_id", event.ID)
	}
}

// notifyFailure informs the organization that provisioning failed. Best
// effort: any error here is logged and swallowed.
func (s *provisioningService) notifyFailure(ctx context.Context, orgID uuid.UUID, entityKey, reason string) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		s.logger.Error("failed to load organization for failure notice",
			"error", err,
			"org_id", orgID,
			"entity", entityKey)
		return
	}

	if err := s.notifier.ProvisioningFailed(ctx, org.BillingEmail, entityKey, reason); err != nil {
		s.logger.Error("failed to send provisioning failure notice",
			"error", err,
			"org_id", orgID,
			"entity", entityKey)
	}
}
