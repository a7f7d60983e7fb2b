package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/events"
	"github.com/mailfoundry/mailfoundry/internal/provider"
)

func TestCreateDomain_PlatformRegistrar(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "Example.COM",
		SourceProvider: domain.SourceProviderPlatform,
		Tags:           []string{"outbound"},
		AutoRenew:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	d := result.Domain
	assert.Equal(t, "example.com", d.Name, "name should be normalized")
	assert.Equal(t, domain.DomainStatusActive, d.Status)
	assert.True(t, d.ExternalRefs.Has(domain.RefOrderID))
	assert.True(t, d.ExternalRefs.Has(domain.RefZoneID))
	assert.True(t, d.ExternalRefs.Has(domain.RefNameservers))
	assert.False(t, d.ExternalRefs.Has(domain.RefError))

	run := result.Run
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, domain.EntityTypeDomain, run.EntityType)
	require.NotNil(t, run.InitiatedBy)
	assert.Equal(t, env.userID, *run.InitiatedBy)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.FinishedAt)

	// Baseline SPF and DMARC records land in the zone.
	assert.Equal(t, 2, env.dns.RecordCount(d.ExternalRefs[domain.RefZoneID]))

	usageEvents := env.recorder.byCode(events.CodeDomainCreated)
	require.Len(t, usageEvents, 1)
	assert.Equal(t, env.orgID, usageEvents[0].OrganizationID)
	assert.Equal(t, d.ID.String(), usageEvents[0].RelatedRefs["domain_id"])
}

func TestCreateDomain_ExternalSkipsRegistration(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "byo.example.net",
		SourceProvider: domain.SourceProviderExternal,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DomainStatusActive, result.Domain.Status)
	assert.False(t, result.Domain.ExternalRefs.Has(domain.RefOrderID),
		"externally registered domains must not get a registrar order")
	assert.True(t, result.Domain.ExternalRefs.Has(domain.RefZoneID))
}

func TestCreateDomain_NotMember(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         uuid.New(),
		Name:           "example.com",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.ErrorIs(t, err, ErrNotMember)

	assert.Empty(t, env.domains.domains, "no entity may be created for non-members")
	assert.Empty(t, env.runs.runs, "no run may be created for non-members")
	assert.Empty(t, env.recorder.events)
}

func TestCreateDomain_DNSFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dns.FailZoneFunc = func(string) error {
		return provider.NewError(provider.CategoryDNS, provider.ReasonUnavailable, "zone service down", nil)
	}

	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "example.com",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.Error(t, err)
	var pErr *ProvisioningError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StepCreateZone, pErr.Step)
	require.True(t, provider.IsProviderError(err), "original provider error must stay reachable")

	require.NotNil(t, result, "snapshots are returned even when execution fails")
	d := result.Domain
	assert.Equal(t, domain.DomainStatusError, d.Status)
	assert.True(t, d.ExternalRefs.Has(domain.RefOrderID),
		"refs from the completed registration step must survive")
	assert.False(t, d.ExternalRefs.Has(domain.RefZoneID))
	assert.Contains(t, d.ExternalRefs[domain.RefError], "zone service down")

	run := result.Run
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, StepCreateZone)

	require.Len(t, env.notifier.notices, 1)
	assert.Contains(t, env.notifier.notices[0], "billing@acme.test")

	// The creation itself is billable regardless of provisioning outcome.
	assert.Len(t, env.recorder.byCode(events.CodeDomainCreated), 1)
}

func TestCreateDomain_RegistrarFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registrar.FailFunc = func(string) error {
		return provider.NewError(provider.CategoryRegistrar, provider.ReasonRejected, "tld not supported", nil)
	}

	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "example.invalid",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.Error(t, err)

	d := result.Domain
	assert.Equal(t, domain.DomainStatusError, d.Status)
	assert.False(t, d.ExternalRefs.Has(domain.RefOrderID))
	assert.False(t, d.ExternalRefs.Has(domain.RefZoneID))
	assert.Equal(t, domain.RunStatusFailed, result.Run.Status)
}

func TestCreateDomain_InvalidName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "not-a-domain",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrInvalidDomainName)
	assert.Empty(t, env.domains.domains)
}

func TestCreateDomain_DuplicateName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "example.com",
		SourceProvider: domain.SourceProviderPlatform,
	}
	_, err := env.svc.CreateDomain(context.Background(), req)
	require.NoError(t, err)

	_, err = env.svc.CreateDomain(context.Background(), req)
	require.Error(t, err)
	var pErr *ProvisioningError
	require.ErrorAs(t, err, &pErr)
}

func TestCreateDomain_CanceledContext(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.svc.CreateDomain(ctx, CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "example.com",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))

	require.NotNil(t, result)
	assert.Equal(t, domain.RunStatusCanceled, result.Run.Status)
	assert.Equal(t, domain.DomainStatusPendingDNS, result.Domain.Status,
		"cancellation must leave the entity untouched")
	assert.Empty(t, result.Domain.ExternalRefs)
}

func TestCreateDomain_RunCreationFailureDeletesEntity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.runs.createErr = errors.New("ledger unavailable")

	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "example.com",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")
	assert.Nil(t, result)

	env.domains.mu.Lock()
	defer env.domains.mu.Unlock()
	assert.Empty(t, env.domains.domains, "entity creation must be compensated")
}

func TestCreateDomain_NotifierFailureDoesNotMaskProviderError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dns.FailZoneFunc = func(string) error {
		return provider.NewError(provider.CategoryDNS, provider.ReasonUnavailable, "zone service down", nil)
	}
	env.notifier.failErr = errors.New("smtp relay down")

	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           "example.com",
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.Error(t, err)
	require.True(t, provider.IsProviderError(err))
	assert.NotContains(t, err.Error(), "smtp relay down")

	require.NotNil(t, result)
	assert.Equal(t, domain.RunStatusFailed, result.Run.Status)
}
