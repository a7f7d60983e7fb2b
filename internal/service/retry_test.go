package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/provider"
)

func TestRetryProvisioning_DomainRecoversAfterFailure(t *testing.T) {
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
	firstRun := result.Run
	firstOrderID := result.Domain.ExternalRefs[domain.RefOrderID]
	require.NotEmpty(t, firstOrderID)

	// Provider recovered; retry replays the whole sequence.
	env.dns.FailZoneFunc = nil

	run, err := env.svc.RetryProvisioning(context.Background(), result.Domain.ID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Nil(t, run.InitiatedBy, "retries are system-initiated")
	assert.NotEqual(t, firstRun.ID, run.ID)

	d, err := env.domains.GetByID(context.Background(), result.Domain.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusActive, d.Status)
	assert.Equal(t, firstOrderID, d.ExternalRefs[domain.RefOrderID],
		"the idempotent registrar confirms the original order")
	assert.True(t, d.ExternalRefs.Has(domain.RefZoneID))
	assert.False(t, d.ExternalRefs.Has(domain.RefError),
		"a recovered entity must not keep the previous run's error")

	// The failed run is untouched by the retry.
	stale, err := env.runs.GetByID(context.Background(), firstRun.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, stale.Status)

	history, err := env.runs.ListByEntity(context.Background(), result.Domain.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRetryProvisioning_SecondFailureReplacesErrorRef(t *testing.T) {
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
	require.Contains(t, result.Domain.ExternalRefs[domain.RefError], "zone service down")

	// Zone creation recovered, but the retry fails one step later.
	env.dns.FailZoneFunc = nil
	env.dns.FailRecordsFunc = func(string) error {
		return provider.NewError(provider.CategoryDNS, provider.ReasonRejected, "records rejected", nil)
	}

	run, err := env.svc.RetryProvisioning(context.Background(), result.Domain.ID)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "records rejected")

	d, err := env.domains.GetByID(context.Background(), result.Domain.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusError, d.Status)
	assert.Contains(t, d.ExternalRefs[domain.RefError], "records rejected",
		"the error ref must describe the latest run, not the first one")
	assert.NotContains(t, d.ExternalRefs[domain.RefError], "zone service down")
	assert.True(t, d.ExternalRefs.Has(domain.RefZoneID),
		"identifiers collected by the retry are kept")
}

func TestRetryProvisioning_Mailbox(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	env.host.FailFunc = func(provider.AccountProfile) error {
		return provider.NewError(provider.CategoryMailboxHost, provider.ReasonUnreachable, "host timeout", nil)
	}
	result, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       d.ID,
		Count:          1,
		NamePatterns:   []string{"info"},
	})
	require.NoError(t, err)
	m := result.Mailboxes[0]
	require.Equal(t, domain.MailboxStatusError, m.Status)

	env.host.FailFunc = nil

	run, err := env.svc.RetryProvisioning(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, domain.EntityTypeMailbox, run.EntityType)

	fresh, err := env.mailboxes.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MailboxStatusActive, fresh.Status)
	assert.True(t, fresh.ExternalRefs.Has(domain.RefAccountID))
	assert.True(t, fresh.ExternalRefs.Has(domain.RefExternalID))
}

func TestRetryProvisioning_ConflictWhileInFlight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	// A run already sits in the queue for this entity.
	queued, err := domain.NewRun(domain.EntityTypeDomain, d.ID, env.orgID, nil)
	require.NoError(t, err)
	require.NoError(t, env.runs.Create(context.Background(), queued))

	_, err = env.svc.RetryProvisioning(context.Background(), d.ID)
	require.ErrorIs(t, err, ErrRunConflict)
}

func TestRetryProvisioning_UnknownEntity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.RetryProvisioning(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrEntityNotFound)
}
