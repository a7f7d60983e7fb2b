package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

func newMailboxStoreMock(t *testing.T) (*PostgresMailboxStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresMailboxStore(db, nil), mock
}

func mailboxColumns() []string {
	return []string{
		"id", "organization_id", "domain_id", "address", "status",
		"external_refs", "created_at", "updated_at",
	}
}

func TestMailboxStoreCreateDuplicateAddress(t *testing.T) {
	t.Parallel()
	s, mock := newMailboxStoreMock(t)

	m, err := domain.NewMailbox(uuid.New(), uuid.New(), "john@example.com")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO mailboxes").
		WillReturnError(&pgconn.PgError{
			Code:           uniqueViolationCode,
			ConstraintName: mailboxAddressConstraint,
		})

	err = s.Create(context.Background(), m)
	assert.ErrorIs(t, err, store.ErrMailboxAddressExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMailboxStoreTransitionStatusPreservesEarlierRefs(t *testing.T) {
	t.Parallel()
	s, mock := newMailboxStoreMock(t)

	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE mailboxes").
		WithArgs(id, domain.MailboxStatusError, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(mailboxColumns()).AddRow(
			id.String(), uuid.New().String(), uuid.New().String(), "john@example.com", "error",
			[]byte(`{"account_id":"acct-1","error":"sending platform down"}`),
			now, now,
		))

	m, err := s.TransitionStatus(context.Background(), id, domain.MailboxStatusError,
		domain.ExternalRefs{domain.RefError: "sending platform down"})
	require.NoError(t, err)

	assert.Equal(t, domain.MailboxStatusError, m.Status)
	assert.Equal(t, "acct-1", m.ExternalRefs[domain.RefAccountID],
		"the account id from the completed step must survive the failure transition")
	assert.Equal(t, "sending platform down", m.ExternalRefs[domain.RefError])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMailboxStoreListByDomain(t *testing.T) {
	t.Parallel()
	s, mock := newMailboxStoreMock(t)

	domainID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM mailboxes").
		WithArgs(domainID).
		WillReturnRows(sqlmock.NewRows(mailboxColumns()).
			AddRow(uuid.New().String(), uuid.New().String(), domainID.String(),
				"a@example.com", "active", []byte(`{}`), now, now).
			AddRow(uuid.New().String(), uuid.New().String(), domainID.String(),
				"b@example.com", "provisioning", []byte(`{}`), now, now))

	mailboxes, err := s.ListByDomain(context.Background(), domainID)
	require.NoError(t, err)
	require.Len(t, mailboxes, 2)
	assert.Equal(t, "a@example.com", mailboxes[0].Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}
