package pgrepo_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	iamerrors "github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/tenants"
	"github.com/jrsteele09/go-iam-server/tenants/pgrepo"
	"github.com/stretchr/testify/require"
)

var tenantRowColumns = []string{"id", "name", "tag", "db_user", "db_user_password", "is_suspended", "created_at"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pgrepo.New(db)
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`select id, name, tag, db_user, db_user_password, is_suspended, created_at from tenants where id = \$1`).
			WithArgs("abc123").
			WillReturnRows(sqlmock.NewRows(tenantRowColumns).AddRow("abc123", "Acme", "production", "logto_tenant_abc123", "pw", false, now))

		tenant, err := repo.FindByID(t.Context(), "abc123")
		require.NoError(t, err)
		require.Equal(t, tenants.TagProduction, tenant.Tag)
		require.Equal(t, "logto_tenant_abc123", tenant.DBUser)
	})

	t.Run("system tenant with no db user", func(t *testing.T) {
		mock.ExpectQuery(`from tenants where id = \$1`).
			WithArgs("admin").
			WillReturnRows(sqlmock.NewRows(tenantRowColumns).AddRow("admin", "admin", "production", nil, nil, false, now))

		tenant, err := repo.FindByID(t.Context(), "admin")
		require.NoError(t, err)
		require.Empty(t, tenant.DBUser)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(`from tenants where id = \$1`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(t.Context(), "nope")
		require.ErrorIs(t, err, iamerrors.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pgrepo.New(db)

	mock.ExpectExec(`insert into tenants`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Insert(t.Context(), &tenants.Tenant{ID: "abc123", Name: "Acme", Tag: tenants.TagDevelopment})
	require.ErrorIs(t, err, iamerrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExcludesSystemTenants(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pgrepo.New(db)

	mock.ExpectQuery(`where id not in \('admin', 'default'\)`).
		WillReturnRows(sqlmock.NewRows(tenantRowColumns).AddRow("abc123", "Acme", "development", "u", "p", false, time.Now()))

	list, err := repo.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOnlyTouchesSuppliedColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pgrepo.New(db)

	mock.ExpectQuery(`update tenants set tag = \$2 where id = \$1 returning`).
		WithArgs("abc123", "production").
		WillReturnRows(sqlmock.NewRows(tenantRowColumns).AddRow("abc123", "Acme", "production", "u", "p", false, time.Now()))

	tenant, err := repo.Update(t.Context(), "abc123", tenants.Patch{Tag: ptr(tenants.TagProduction)})
	require.NoError(t, err)
	require.Equal(t, tenants.TagProduction, tenant.Tag)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := pgrepo.New(db)

	mock.ExpectExec(`delete from tenants where id = \$1`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(t.Context(), "nope"), iamerrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleManager(t *testing.T) {
	db, mock := newMockDB(t)
	roles := pgrepo.NewRoleManager(db)

	mock.ExpectExec(`create role "logto_tenant_abc123" with inherit login password 'it''s'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`drop role if exists "logto_tenant_abc123"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, roles.CreateRole(t.Context(), "logto_tenant_abc123", "it's"))
	require.NoError(t, roles.DropRole(t.Context(), "logto_tenant_abc123"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func ptr[T any](v T) *T {
	return &v
}
