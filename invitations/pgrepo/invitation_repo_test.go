package pgrepo_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	iamerrors "github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/invitations"
	"github.com/jrsteele09/go-iam-server/invitations/pgrepo"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/stretchr/testify/require"
)

var invitationRowColumns = []string{"id", "organization_id", "invitee", "inviter_id", "accepted_user_id", "status", "created_at", "updated_at", "expires_at"}

func newMockRepo(t *testing.T) (*pgrepo.InvitationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pgrepo.New(db), mock
}

func pendingInvitation() *invitations.Invitation {
	now := time.Now().UTC()
	return &invitations.Invitation{
		ID:             "01HZZZ",
		OrganizationID: "abc123",
		Invitee:        "jane@example.com",
		InviterID:      "user-admin",
		Status:         invitations.StatusPending,
		Roles:          []organizations.RoleID{organizations.RoleAdmin},
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(invitations.DefaultExpiry),
	}
}

func TestInsert(t *testing.T) {
	t.Run("writes invitation and roles", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		inv := pendingInvitation()

		mock.ExpectBegin()
		mock.ExpectExec(`insert into organization_invitations`).
			WithArgs(inv.ID, inv.OrganizationID, inv.Invitee, inv.InviterID, "Pending", inv.CreatedAt, inv.UpdatedAt, inv.ExpiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`insert into organization_invitation_role_relations`).
			WithArgs(inv.ID, "admin").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Insert(t.Context(), inv))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`insert into organization_invitations`).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		err := repo.Insert(t.Context(), pendingInvitation())
		require.ErrorIs(t, err, iamerrors.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindByIDLoadsRoles(t *testing.T) {
	repo, mock := newMockRepo(t)
	inv := pendingInvitation()

	mock.ExpectQuery(`from organization_invitations where id = \$1`).
		WithArgs(inv.ID).
		WillReturnRows(sqlmock.NewRows(invitationRowColumns).
			AddRow(inv.ID, inv.OrganizationID, inv.Invitee, inv.InviterID, "", "Pending", inv.CreatedAt, inv.UpdatedAt, inv.ExpiresAt))
	mock.ExpectQuery(`select organization_role_id from organization_invitation_role_relations`).
		WithArgs(inv.ID).
		WillReturnRows(sqlmock.NewRows([]string{"organization_role_id"}).AddRow("admin"))

	got, err := repo.FindByID(t.Context(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, invitations.StatusPending, got.Status)
	require.Equal(t, []organizations.RoleID{organizations.RoleAdmin}, got.Roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`from organization_invitations where id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(t.Context(), "nope")
	require.ErrorIs(t, err, iamerrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept(t *testing.T) {
	at := time.Now().UTC()

	t.Run("flips status and inserts membership in one transaction", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`update organization_invitations set status = \$2, accepted_user_id = \$3, updated_at = \$4 where id = \$1 and status = \$5 returning organization_id`).
			WithArgs("inv-1", "Accepted", "user-jane", at, "Pending").
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("abc123"))
		mock.ExpectExec(`insert into organization_user_relations`).
			WithArgs("abc123", "user-jane").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`insert into organization_role_user_relations`).
			WithArgs("abc123", "user-jane", "collaborator").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Accept(t.Context(), "inv-1", "user-jane", []organizations.RoleID{organizations.RoleCollaborator}, at)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing the race is invalid state", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`update organization_invitations`).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))
		mock.ExpectRollback()

		err := repo.Accept(t.Context(), "inv-1", "user-jane", []organizations.RoleID{organizations.RoleCollaborator}, at)
		require.ErrorIs(t, err, iamerrors.ErrInvalidState)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("membership failure rolls back the status change", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`update organization_invitations`).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("abc123"))
		mock.ExpectExec(`insert into organization_user_relations`).
			WillReturnError(&pgconn.PgError{Code: "23503"})
		mock.ExpectRollback()

		err := repo.Accept(t.Context(), "inv-1", "user-jane", nil, at)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByOrganization(t *testing.T) {
	repo, mock := newMockRepo(t)
	inv := pendingInvitation()

	mock.ExpectQuery(`select count\(\*\) from organization_invitations where organization_id = \$1`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`order by id desc offset \$2 limit \$3`).
		WithArgs("abc123", 2, 2).
		WillReturnRows(sqlmock.NewRows(invitationRowColumns).
			AddRow(inv.ID, inv.OrganizationID, inv.Invitee, inv.InviterID, "", "Pending", inv.CreatedAt, inv.UpdatedAt, inv.ExpiresAt))
	mock.ExpectQuery(`select organization_role_id`).
		WithArgs(inv.ID).
		WillReturnRows(sqlmock.NewRows([]string{"organization_role_id"}).AddRow("admin"))

	page, err := repo.ListByOrganization(t.Context(), "abc123", 2, 2)
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRequiresPending(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`update organization_invitations set status = \$2, updated_at = \$3 where id = \$1 and status = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(t.Context(), "inv-1", invitations.StatusRevoked, time.Now())
	require.ErrorIs(t, err, iamerrors.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}
