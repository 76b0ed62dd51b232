//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/database"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/invitations"
	invitationpg "github.com/jrsteele09/go-iam-server/invitations/pgrepo"
	"github.com/jrsteele09/go-iam-server/organizations"
	orgpg "github.com/jrsteele09/go-iam-server/organizations/pgrepo"
	"github.com/jrsteele09/go-iam-server/sessions"
	sessionpg "github.com/jrsteele09/go-iam-server/sessions/pgrepo"
	"github.com/jrsteele09/go-iam-server/tenants"
	tenantpg "github.com/jrsteele09/go-iam-server/tenants/pgrepo"
	"github.com/jrsteele09/go-iam-server/users"
	userpg "github.com/jrsteele09/go-iam-server/users/pgrepo"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("iam_test"),
		postgres.WithUsername("iam"),
		postgres.WithPassword("iam_test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := testcontainers.TerminateContainer(container, testcontainers.StopContext(cleanupCtx)); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, dsn, database.PoolOptions{MaxOpenConns: 5, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.ApplySchema(ctx, db))
	// Statements are idempotent.
	require.NoError(t, database.ApplySchema(ctx, db))
	return db
}

func TestPostgresStores(t *testing.T) {
	db := startPostgres(t)
	ctx := t.Context()
	now := time.Now().UTC().Truncate(time.Millisecond)

	tenantRepo := tenantpg.New(db)
	orgRepo := orgpg.New(db)
	userRepo := userpg.New(db)
	invitationRepo := invitationpg.New(db)
	sessionRepo := sessionpg.New(db)

	t.Run("tenant suspension round trip", func(t *testing.T) {
		require.NoError(t, tenantRepo.Insert(ctx, &tenants.Tenant{
			ID: "t1", Name: "One", Tag: tenants.TagDevelopment,
			DBUser: "logto_tenant_t1", DBUserPassword: "pw", CreatedAt: now,
		}))
		status, err := tenantRepo.FindSuspendStatusByID(ctx, "t1")
		require.NoError(t, err)
		require.False(t, status.IsSuspended)

		require.NoError(t, tenantRepo.SetSuspended(ctx, "t1", true))
		status, err = tenantRepo.FindSuspendStatusByID(ctx, "t1")
		require.NoError(t, err)
		require.True(t, status.IsSuspended)

		_, err = tenantRepo.FindSuspendStatusByID(ctx, "missing")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		require.NoError(t, userRepo.Insert(ctx, &users.User{ID: "u1", PrimaryEmail: "alice@example.com", CreatedAt: now}))
		err := userRepo.Insert(ctx, &users.User{ID: "u2", PrimaryEmail: "alice@example.com", CreatedAt: now})
		require.ErrorIs(t, err, errors.ErrConflict)
	})

	t.Run("mfa requirement joins users", func(t *testing.T) {
		require.NoError(t, orgRepo.Ensure(ctx, organizations.Organization{ID: "t1", Name: "One", IsMfaRequired: true, CreatedAt: now}))
		req, err := orgRepo.MfaRequirement(ctx, "t1", "u1")
		require.NoError(t, err)
		require.True(t, req.IsMfaRequired)
		require.False(t, req.HasMfaConfigured)

		require.NoError(t, userRepo.AddMfaFactor(ctx, "u1", users.MfaFactor{ID: "f1", Type: users.MfaTotp, CreatedAt: now}))
		req, err = orgRepo.MfaRequirement(ctx, "t1", "u1")
		require.NoError(t, err)
		require.True(t, req.HasMfaConfigured)
	})

	t.Run("accepting an invitation writes the membership", func(t *testing.T) {
		inv := &invitations.Invitation{
			ID:             "inv1",
			OrganizationID: "t1",
			Invitee:        "alice@example.com",
			Status:         invitations.StatusPending,
			Roles:          []organizations.RoleID{organizations.RoleCollaborator},
			CreatedAt:      now,
			UpdatedAt:      now,
			ExpiresAt:      now.Add(time.Hour),
		}
		require.NoError(t, invitationRepo.Insert(ctx, inv))

		dup := *inv
		dup.ID = "inv2"
		require.ErrorIs(t, invitationRepo.Insert(ctx, &dup), errors.ErrConflict)

		require.NoError(t, invitationRepo.Accept(ctx, "inv1", "u1", inv.Roles, now))
		require.ErrorIs(t, invitationRepo.Accept(ctx, "inv1", "u1", inv.Roles, now), errors.ErrInvalidState)

		member, err := orgRepo.IsMember(ctx, "t1", "u1")
		require.NoError(t, err)
		require.True(t, member)

		stored, err := invitationRepo.FindByID(ctx, "inv1")
		require.NoError(t, err)
		require.Equal(t, invitations.StatusAccepted, stored.Status)
		require.Equal(t, "u1", stored.AcceptedUserID)
	})

	t.Run("sessions revoke all but current", func(t *testing.T) {
		for _, id := range []string{"s1", "s2", "s3"} {
			require.NoError(t, sessionRepo.Upsert(ctx, &sessions.Session{
				ID: id, UserID: "u1", ClientID: "c", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
			}))
		}
		n, err := sessionRepo.DeleteByUserID(ctx, "u1", "s2")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		remaining, err := sessionRepo.ListByUserID(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		require.Equal(t, "s2", remaining[0].ID)
	})
}
