package invitations_test

import (
	"errors"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/config"
	iamerrors "github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/invitations"
	invitationrepofakes "github.com/jrsteele09/go-iam-server/invitations/repofakes"
	"github.com/jrsteele09/go-iam-server/organizations"
	orgrepofakes "github.com/jrsteele09/go-iam-server/organizations/repofakes"
	"github.com/jrsteele09/go-iam-server/tenants"
	tenantrepofakes "github.com/jrsteele09/go-iam-server/tenants/repofakes"
	"github.com/stretchr/testify/require"
)

const (
	testTenantID  = "abc123"
	testInvitee   = "jane@example.com"
	testInviterID = "user-admin"
	testUserID    = "user-jane"
)

type testFixture struct {
	tenants     *tenantrepofakes.FakeTenantRepo
	orgs        *orgrepofakes.FakeOrganizationRepo
	invitations *invitationrepofakes.FakeInvitationRepo
	manager     *invitations.Manager
	now         time.Time
}

func setupTestFixture(t *testing.T, mode config.DeploymentMode) *testFixture {
	t.Helper()
	f := &testFixture{
		tenants: tenantrepofakes.NewFakeTenantRepo(),
		orgs:    orgrepofakes.NewFakeOrganizationRepo(),
		now:     time.Now().UTC(),
	}
	f.invitations = invitationrepofakes.NewFakeInvitationRepo(f.orgs)
	require.NoError(t, f.tenants.Insert(t.Context(), &tenants.Tenant{ID: testTenantID, Name: "Acme", Tag: tenants.TagDevelopment}))
	f.manager = invitations.NewManager(f.invitations, f.tenants, f.orgs, mode,
		invitations.WithNowTime(func() time.Time { return f.now }))
	return f
}

func (f *testFixture) invite(t *testing.T, role organizations.TenantRole) *invitations.TenantInvitation {
	t.Helper()
	inv, err := f.manager.Create(t.Context(), invitations.CreateInput{
		TenantID:  testTenantID,
		Invitee:   testInvitee,
		InviterID: testInviterID,
		Role:      role,
	})
	require.NoError(t, err)
	return inv
}

func TestCreateAndList(t *testing.T) {
	f := setupTestFixture(t, config.Cloud)
	created := f.invite(t, organizations.TenantRoleCollaborator)

	require.Equal(t, invitations.StatusPending, created.Status)
	require.Equal(t, []organizations.RoleID{organizations.RoleCollaborator}, created.Roles)

	require.True(t, f.orgs.Exists(testTenantID))

	items, total, err := f.manager.List(t.Context(), testTenantID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, items, 1)
	require.Equal(t, created.ID, items[0].ID)
	require.Equal(t, invitations.StatusPending, items[0].Status)
	require.Equal(t, organizations.TenantRoleCollaborator, items[0].Role)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), items[0].ExpiresAt, time.Minute)
}

func TestListPaging(t *testing.T) {
	f := setupTestFixture(t, config.Cloud)
	f.invite(t, organizations.TenantRoleCollaborator)

	t.Run("page past the end is empty", func(t *testing.T) {
		items, total, err := f.manager.List(t.Context(), testTenantID, 5, 10)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Empty(t, items)
	})

	t.Run("page size above the maximum", func(t *testing.T) {
		_, _, err := f.manager.List(t.Context(), testTenantID, 1, invitations.DefaultMaxPageSize+1)
		require.ErrorIs(t, err, invitations.ErrInvalidPage)
		status, code, _ := iamerrors.Describe(err)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, iamerrors.CodeInvalidInput, code)
	})

	t.Run("offset overflow", func(t *testing.T) {
		_, _, err := f.manager.List(t.Context(), testTenantID, math.MaxInt, invitations.DefaultMaxPageSize)
		require.ErrorIs(t, err, invitations.ErrInvalidPage)
	})
}

func TestCreate(t *testing.T) {
	t.Run("duplicate pending invitee is a conflict", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		f.invite(t, organizations.TenantRoleAdmin)
		_, err := f.manager.Create(t.Context(), invitations.CreateInput{TenantID: testTenantID, Invitee: testInvitee, Role: organizations.TenantRoleAdmin})
		require.ErrorIs(t, err, invitations.ErrConflict)
		require.ErrorIs(t, err, iamerrors.ErrConflict)
	})

	t.Run("other insert failures are generic", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		f.invitations.InsertErr = errors.New("relation does not exist")
		_, err := f.manager.Create(t.Context(), invitations.CreateInput{TenantID: testTenantID, Invitee: testInvitee, Role: organizations.TenantRoleAdmin})
		require.ErrorIs(t, err, invitations.ErrCreateFailed)
		require.NotErrorIs(t, err, iamerrors.ErrConflict)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		_, err := f.manager.Create(t.Context(), invitations.CreateInput{TenantID: "nope", Invitee: testInvitee, Role: organizations.TenantRoleAdmin})
		require.ErrorIs(t, err, iamerrors.ErrNotFound)
	})

	t.Run("bad input", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		_, err := f.manager.Create(t.Context(), invitations.CreateInput{TenantID: testTenantID, Invitee: "not-an-email", Role: organizations.TenantRoleAdmin})
		require.ErrorIs(t, err, iamerrors.ErrInvalidInput)
		_, err = f.manager.Create(t.Context(), invitations.CreateInput{TenantID: testTenantID, Invitee: testInvitee, Role: "Owner"})
		require.ErrorIs(t, err, iamerrors.ErrInvalidInput)
	})
}

func TestAccept(t *testing.T) {
	t.Run("success writes membership", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		inv := f.invite(t, organizations.TenantRoleAdmin)

		result, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
		require.NoError(t, err)
		require.Equal(t, invitations.AcceptResult{TenantID: testTenantID, Role: organizations.TenantRoleAdmin}, result)

		member, err := f.orgs.IsMember(t.Context(), testTenantID, testUserID)
		require.NoError(t, err)
		require.True(t, member)

		stored, err := f.manager.Get(t.Context(), inv.ID)
		require.NoError(t, err)
		require.Equal(t, invitations.StatusAccepted, stored.Status)
		require.Equal(t, testUserID, stored.AcceptedUserID)
	})

	t.Run("not found", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		_, err := f.manager.Accept(t.Context(), "missing", testInvitee, testUserID)
		require.ErrorIs(t, err, invitations.ErrInvitationNotFound)
		status, code, _ := iamerrors.Describe(err)
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, iamerrors.CodeInvitationNotFound, code)
	})

	t.Run("email must match exactly", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		inv := f.invite(t, organizations.TenantRoleAdmin)
		_, err := f.manager.Accept(t.Context(), inv.ID, "Jane@example.com", testUserID)
		require.ErrorIs(t, err, invitations.ErrInvalidEmail)
		status, _, _ := iamerrors.Describe(err)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("email is checked before status", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		f.invitations.Put(&invitations.Invitation{ID: "inv-1", OrganizationID: testTenantID, Invitee: testInvitee, Status: invitations.StatusRevoked, ExpiresAt: f.now.Add(-time.Hour)})
		_, err := f.manager.Accept(t.Context(), "inv-1", "other@example.com", testUserID)
		require.ErrorIs(t, err, invitations.ErrInvalidEmail)
	})

	t.Run("status is checked before expiry", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		f.invitations.Put(&invitations.Invitation{ID: "inv-1", OrganizationID: testTenantID, Invitee: testInvitee, Status: invitations.StatusRevoked, ExpiresAt: f.now.Add(-time.Hour)})
		_, err := f.manager.Accept(t.Context(), "inv-1", testInvitee, testUserID)
		require.ErrorIs(t, err, invitations.ErrInvalidStatus)
		status, _, _ := iamerrors.Describe(err)
		require.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("expired pending invitation", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		f.invitations.Put(&invitations.Invitation{
			ID: "inv-1", OrganizationID: testTenantID, Invitee: testInvitee, Status: invitations.StatusPending,
			Roles: []organizations.RoleID{organizations.RoleAdmin}, ExpiresAt: f.now.Add(-time.Second),
		})
		_, err := f.manager.Accept(t.Context(), "inv-1", testInvitee, testUserID)
		require.ErrorIs(t, err, invitations.ErrExpired)

		stored, err := f.manager.Get(t.Context(), "inv-1")
		require.NoError(t, err)
		require.Equal(t, invitations.StatusPending, stored.Status)
	})

	t.Run("no recognised role", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		f.invitations.Put(&invitations.Invitation{
			ID: "inv-1", OrganizationID: testTenantID, Invitee: testInvitee, Status: invitations.StatusPending,
			Roles: []organizations.RoleID{"superadmin"}, ExpiresAt: f.now.Add(time.Hour),
		})
		_, err := f.manager.Accept(t.Context(), "inv-1", testInvitee, testUserID)
		require.ErrorIs(t, err, invitations.ErrNoRoles)
		_, code, _ := iamerrors.Describe(err)
		require.Equal(t, iamerrors.CodeInvitationNoRoles, code)
	})

	t.Run("all rejections are distinct", func(t *testing.T) {
		codes := map[string]struct{}{}
		for _, err := range []error{invitations.ErrInvitationNotFound, invitations.ErrInvalidEmail, invitations.ErrInvalidStatus, invitations.ErrExpired, invitations.ErrNoRoles} {
			_, code, _ := iamerrors.Describe(err)
			codes[code] = struct{}{}
		}
		require.Len(t, codes, 5)
	})

	t.Run("suspended tenant in cloud", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		inv := f.invite(t, organizations.TenantRoleCollaborator)
		require.NoError(t, f.tenants.SetSuspended(t.Context(), testTenantID, true))
		_, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
		require.ErrorIs(t, err, iamerrors.ErrTenantSuspended)
	})

	t.Run("suspension ignored in single tenant mode", func(t *testing.T) {
		f := setupTestFixture(t, config.SingleTenant)
		inv := f.invite(t, organizations.TenantRoleCollaborator)
		require.NoError(t, f.tenants.SetSuspended(t.Context(), testTenantID, true))
		_, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
		require.NoError(t, err)
	})

	t.Run("deleted tenant", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		inv := f.invite(t, organizations.TenantRoleCollaborator)
		require.NoError(t, f.tenants.Delete(t.Context(), testTenantID))
		_, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
		require.ErrorIs(t, err, iamerrors.ErrNotFound)
	})

	t.Run("second accept sees invalid status", func(t *testing.T) {
		f := setupTestFixture(t, config.Cloud)
		inv := f.invite(t, organizations.TenantRoleCollaborator)
		_, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
		require.NoError(t, err)
		_, err = f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
		require.ErrorIs(t, err, invitations.ErrInvalidStatus)
	})
}

func TestConcurrentAccept(t *testing.T) {
	f := setupTestFixture(t, config.Cloud)
	inv := f.invite(t, organizations.TenantRoleCollaborator)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		invalid   int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, invitations.ErrInvalidStatus):
				invalid++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, invalid)

	members, err := f.orgs.ListMembers(t.Context(), testTenantID)
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t, config.Cloud)
	inv := f.invite(t, organizations.TenantRoleCollaborator)

	require.ErrorIs(t, f.manager.Revoke(t.Context(), "other", inv.ID), invitations.ErrInvitationNotFound)
	require.NoError(t, f.manager.Revoke(t.Context(), testTenantID, inv.ID))
	require.ErrorIs(t, f.manager.Revoke(t.Context(), testTenantID, inv.ID), invitations.ErrInvalidStatus)

	_, err := f.manager.Accept(t.Context(), inv.ID, testInvitee, testUserID)
	require.ErrorIs(t, err, invitations.ErrInvalidStatus)

	// a revoked invitation no longer blocks a fresh one
	f.invite(t, organizations.TenantRoleAdmin)
}
