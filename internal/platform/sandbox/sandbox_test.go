package sandbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfoundry/mailfoundry/internal/provider"
)

func TestRegistrarIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registrar := NewRegistrar()

	first, err := registrar.Register(ctx, "example.com")
	require.NoError(t, err)
	require.NotEmpty(t, first.OrderID)

	second, err := registrar.Register(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID,
		"re-registering the same domain should return the original order")

	other, err := registrar.Register(ctx, "other.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, other.OrderID)
}

func TestRegistrarFailureInjection(t *testing.T) {
	t.Parallel()
	registrar := NewRegistrar()
	registrar.FailFunc = func(domainName string) error {
		if domainName == "taken.com" {
			return provider.NewError(provider.CategoryRegistrar, provider.ReasonUnavailable, "domain unavailable", nil)
		}
		return nil
	}

	_, err := registrar.Register(context.Background(), "taken.com")
	require.Error(t, err)
	pe := provider.AsProviderError(err)
	require.NotNil(t, pe)
	assert.Equal(t, provider.ReasonUnavailable, pe.Reason)

	_, err = registrar.Register(context.Background(), "free.com")
	assert.NoError(t, err)
}

func TestDNSCreateZoneAndApplyRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dns := NewDNS()

	zone, err := dns.CreateZone(ctx, "example.com")
	require.NoError(t, err)
	require.NotEmpty(t, zone.ZoneID)
	require.Len(t, zone.Nameservers, 2)

	again, err := dns.CreateZone(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, zone.ZoneID, again.ZoneID,
		"creating a zone for a domain that already has one is an already-exists success")

	records := provider.BaselineRecords("example.com")
	require.NoError(t, dns.ApplyRecords(ctx, zone.ZoneID, records))
	assert.Equal(t, 2, dns.RecordCount(zone.ZoneID))

	// Re-applying upserts rather than duplicating
	require.NoError(t, dns.ApplyRecords(ctx, zone.ZoneID, records))
	assert.Equal(t, 2, dns.RecordCount(zone.ZoneID))

	err = dns.ApplyRecords(ctx, "missing-zone", records)
	require.Error(t, err, "applying records to an unknown zone should fail")
	assert.Equal(t, provider.CategoryDNS, provider.AsProviderError(err).Category)
}

func TestMailboxHostIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	host := NewMailboxHost()
	profile := provider.AccountProfile{Address: "john@example.com", DisplayName: "John"}

	first, err := host.CreateAccount(ctx, uuid.New(), profile)
	require.NoError(t, err)

	second, err := host.CreateAccount(ctx, uuid.New(), profile)
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, second.AccountID,
		"an existing account for the address should be returned, not recreated")
}

func TestSendingPlatformKeyValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	platform := NewSendingPlatform()

	valid, err := platform.ValidateAPIKey(ctx, "org-key-1")
	require.NoError(t, err)
	assert.True(t, valid.Valid)

	platform.RevokeKey("org-key-1")
	valid, err = platform.ValidateAPIKey(ctx, "org-key-1")
	require.NoError(t, err)
	assert.False(t, valid.Valid)
	assert.Equal(t, "api key revoked", valid.Detail)

	valid, err = platform.ValidateAPIKey(ctx, "")
	require.NoError(t, err)
	assert.False(t, valid.Valid)
}

func TestSendingPlatformAddMailbox(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	platform := NewSendingPlatform()
	profile := provider.SenderProfile{Address: "john@example.com"}

	first, err := platform.AddMailbox(ctx, "org-key-1", profile)
	require.NoError(t, err)
	require.NotEmpty(t, first.ExternalID)

	second, err := platform.AddMailbox(ctx, "org-key-1", profile)
	require.NoError(t, err)
	assert.Equal(t, first.ExternalID, second.ExternalID)

	platform.RevokeKey("org-key-1")
	_, err = platform.AddMailbox(ctx, "org-key-1", profile)
	require.Error(t, err)
	assert.Equal(t, provider.ReasonRejected, provider.AsProviderError(err).Reason)
}

func TestContextCancellationMapsToUnreachable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRegistrar().Register(ctx, "example.com")
	require.Error(t, err)
	assert.Equal(t, provider.ReasonUnreachable, provider.AsProviderError(err).Reason)
}
