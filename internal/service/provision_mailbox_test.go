package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/events"
	"github.com/mailfoundry/mailfoundry/internal/provider"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// provisionDomain is a test helper that creates an active domain to hang
// mailboxes off.
func provisionDomain(t *testing.T, env *testEnv, name string) *domain.Domain {
	t.Helper()
	result, err := env.svc.CreateDomain(context.Background(), CreateDomainRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		Name:           name,
		SourceProvider: domain.SourceProviderPlatform,
	})
	require.NoError(t, err)
	return result.Domain
}

func TestCreateMailboxes_Batch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	result, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       d.ID,
		Count:          3,
		NamePatterns:   []string{"sales", "support"},
	})
	require.NoError(t, err)
	require.Len(t, result.Mailboxes, 3)
	require.Len(t, result.Runs, 3)

	addresses := make([]string, 0, 3)
	for i, m := range result.Mailboxes {
		addresses = append(addresses, m.Address)
		assert.Equal(t, domain.MailboxStatusActive, m.Status)
		assert.True(t, m.ExternalRefs.Has(domain.RefAccountID))
		assert.True(t, m.ExternalRefs.Has(domain.RefExternalID),
			"org has a sending key, so the platform step must run")
		assert.Equal(t, domain.RunStatusSucceeded, result.Runs[i].Status)
		assert.Equal(t, m.ID, result.Runs[i].EntityID)
	}
	assert.Equal(t, []string{"sales@example.com", "support@example.com", "sales2@example.com"}, addresses)

	assert.Len(t, env.recorder.byCode(events.CodeMailboxCreated), 3)
}

func TestCreateMailboxes_OneFailureDoesNotRollBackSiblings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	env.host.FailFunc = func(profile provider.AccountProfile) error {
		if profile.Address == "box3@example.com" {
			return provider.NewError(provider.CategoryMailboxHost, provider.ReasonRejected, "quota exceeded", nil)
		}
		return nil
	}

	result, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       d.ID,
		Count:          5,
		NamePatterns:   []string{"box1", "box2", "box3", "box4", "box5"},
	})
	require.NoError(t, err, "a provider failure inside the batch is not a request failure")
	require.Len(t, result.Mailboxes, 5)

	var succeeded, failed int
	for i, m := range result.Mailboxes {
		switch m.Status {
		case domain.MailboxStatusActive:
			succeeded++
			assert.Equal(t, domain.RunStatusSucceeded, result.Runs[i].Status)
		case domain.MailboxStatusError:
			failed++
			assert.Equal(t, "box3@example.com", m.Address)
			assert.Equal(t, domain.RunStatusFailed, result.Runs[i].Status)
			assert.Contains(t, m.ExternalRefs[domain.RefError], "quota exceeded")
			assert.False(t, m.ExternalRefs.Has(domain.RefAccountID))
		default:
			t.Fatalf("unexpected mailbox status %q", m.Status)
		}
	}
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 1, failed)

	require.Len(t, env.notifier.notices, 1)
	assert.Contains(t, env.notifier.notices[0], "box3@example.com")

	// All five creations are billable events.
	assert.Len(t, env.recorder.byCode(events.CodeMailboxCreated), 5)
}

func TestCreateMailboxes_NoSendingKeySkipsPlatform(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.orgs.orgs[env.orgID].SendingPlatformAPIKey = ""
	d := provisionDomain(t, env, "example.com")

	result, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       d.ID,
		Count:          1,
		NamePatterns:   []string{"info"},
	})
	require.NoError(t, err)

	m := result.Mailboxes[0]
	assert.Equal(t, domain.MailboxStatusActive, m.Status)
	assert.True(t, m.ExternalRefs.Has(domain.RefAccountID))
	assert.False(t, m.ExternalRefs.Has(domain.RefExternalID))
}

func TestCreateMailboxes_RevokedSendingKeyFailsPlatformStep(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	env.platform.RevokeKey("sp-key-acme")

	result, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       d.ID,
		Count:          1,
		NamePatterns:   []string{"info"},
	})
	require.NoError(t, err)

	// Key validation stops the platform step before any registration call.
	m := result.Mailboxes[0]
	assert.Equal(t, domain.MailboxStatusError, m.Status)
	assert.True(t, m.ExternalRefs.Has(domain.RefAccountID),
		"account creation precedes the platform step and must survive")
	assert.False(t, m.ExternalRefs.Has(domain.RefExternalID))
	assert.Contains(t, m.ExternalRefs[domain.RefError], "api key invalid")
	assert.Contains(t, m.ExternalRefs[domain.RefError], "revoked")

	run := result.Runs[0]
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, StepAddToPlatform)
}

func TestCreateMailboxes_InvalidCount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	_, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       d.ID,
		Count:          0,
		NamePatterns:   []string{"info"},
	})
	require.ErrorIs(t, err, ErrInvalidMailboxCount)
}

func TestCreateMailboxes_DomainInOtherOrg(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	d := provisionDomain(t, env, "example.com")

	otherOrg := uuid.New()
	otherUser := uuid.New()
	env.orgs.orgs[otherOrg] = &store.Organization{
		ID:           otherOrg,
		Name:         "Other",
		BillingEmail: "billing@other.test",
	}
	env.members.members[otherOrg.String()+"|"+otherUser.String()] = true

	_, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: otherOrg,
		UserID:         otherUser,
		DomainID:       d.ID,
		Count:          1,
		NamePatterns:   []string{"info"},
	})
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestCreateMailboxes_UnknownDomain(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.CreateMailboxes(context.Background(), CreateMailboxesRequest{
		OrganizationID: env.orgID,
		UserID:         env.userID,
		DomainID:       uuid.New(),
		Count:          1,
		NamePatterns:   []string{"info"},
	})
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestGenerateAddresses(t *testing.T) {
	t.Parallel()

	got := generateAddresses([]string{"Sales", "ops"}, "example.com", 5)
	want := []string{
		"sales@example.com",
		"ops@example.com",
		"sales2@example.com",
		"ops2@example.com",
		"sales3@example.com",
	}
	assert.Equal(t, want, got)
}
