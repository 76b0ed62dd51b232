package consent_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-iam-server/applications"
	applicationrepofakes "github.com/jrsteele09/go-iam-server/applications/repofakes"
	"github.com/jrsteele09/go-iam-server/consent"
	"github.com/jrsteele09/go-iam-server/consent/interactionrepo"
	iamerrors "github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*consent.Engine, *interactionrepo.InMemoryRepo, *applicationrepofakes.FakeApplicationRepo) {
	t.Helper()
	provider := interactionrepo.NewInMemoryRepo(func(uid string) string { return "https://auth.example.com/resume/" + uid })
	apps := applicationrepofakes.NewFakeApplicationRepo()
	require.NoError(t, apps.Upsert(t.Context(), &applications.Application{ID: "console", Name: "Console"}))
	require.NoError(t, apps.Upsert(t.Context(), &applications.Application{ID: "partner", Name: "Partner", IsThirdParty: true}))
	engine := consent.NewEngine(provider, apps, consent.WithGrantIDGenerator(func() string { return "grant-new" }))
	return engine, provider, apps
}

func consentPrompt(oidc []string, resources map[string][]string) consent.Prompt {
	return consent.Prompt{
		Name: consent.PromptConsent,
		Details: consent.PromptDetails{
			MissingOIDCScope:      oidc,
			MissingResourceScopes: resources,
		},
	}
}

func TestDecideFirstParty(t *testing.T) {
	engine, provider, _ := setup(t)
	require.NoError(t, provider.Start(&consent.Interaction{
		UID:       "uid-1",
		Params:    consent.Params{ClientID: "console"},
		AccountID: "user-1",
		Prompt:    consentPrompt([]string{"openid", "profile"}, map[string][]string{"https://api.example.com": {"read"}}),
	}))

	out, err := engine.Decide(t.Context(), "uid-1")
	require.NoError(t, err)
	require.True(t, out.Handled)
	require.Equal(t, "https://auth.example.com/resume/uid-1", out.Redirect)

	grant, err := provider.FindGrant(t.Context(), "grant-new")
	require.NoError(t, err)
	require.Equal(t, "user-1", grant.AccountID)
	require.ElementsMatch(t, []string{"openid", "profile"}, grant.OIDCScopes)
	require.Equal(t, map[string][]string{"https://api.example.com": {"read"}}, grant.ResourceScopes)

	res, ok := provider.Finished("uid-1")
	require.True(t, ok)
	require.Equal(t, "grant-new", res.GrantID)
}

func TestDecideExtendsExistingGrantWithOnlyMissingScopes(t *testing.T) {
	engine, provider, _ := setup(t)
	_, err := provider.SaveGrant(t.Context(), &consent.Grant{
		ID:             "grant-1",
		AccountID:      "user-1",
		ClientID:       "console",
		OIDCScopes:     []string{"openid"},
		ResourceScopes: map[string][]string{"https://api.example.com": {"read"}},
	})
	require.NoError(t, err)
	require.NoError(t, provider.Start(&consent.Interaction{
		UID:       "uid-2",
		Params:    consent.Params{ClientID: "console", Scope: "openid email admin"},
		AccountID: "user-1",
		GrantID:   "grant-1",
		Prompt:    consentPrompt([]string{"email"}, map[string][]string{"https://api.example.com": {"write"}}),
	}))

	out, err := engine.Decide(t.Context(), "uid-2")
	require.NoError(t, err)
	require.Equal(t, "grant-1", out.GrantID)

	grant, err := provider.FindGrant(t.Context(), "grant-1")
	require.NoError(t, err)
	require.Equal(t, []string{"openid", "email"}, grant.OIDCScopes)
	require.Equal(t, []string{"read", "write"}, grant.ResourceScopes["https://api.example.com"])
	require.NotContains(t, grant.OIDCScopes, "admin")
}

func TestDecideDemoAppSkipsLookup(t *testing.T) {
	engine, provider, apps := setup(t)
	require.NoError(t, provider.Start(&consent.Interaction{
		UID:       "uid-3",
		Params:    consent.Params{ClientID: applications.DemoAppID},
		AccountID: "user-1",
		Prompt:    consentPrompt([]string{"openid"}, nil),
	}))

	out, err := engine.Decide(t.Context(), "uid-3")
	require.NoError(t, err)
	require.True(t, out.Handled)
	require.Zero(t, apps.Reads())
}

func TestDecideThirdPartyIsNotHandled(t *testing.T) {
	engine, provider, _ := setup(t)
	require.NoError(t, provider.Start(&consent.Interaction{
		UID:       "uid-4",
		Params:    consent.Params{ClientID: "partner"},
		AccountID: "user-1",
		Prompt:    consentPrompt([]string{"openid"}, nil),
	}))

	out, err := engine.Decide(t.Context(), "uid-4")
	require.NoError(t, err)
	require.False(t, out.Handled)
	_, ok := provider.Finished("uid-4")
	require.False(t, ok)
	_, err = provider.FindGrant(t.Context(), "grant-new")
	require.ErrorIs(t, err, iamerrors.ErrNotFound)
}

func TestDecideFailures(t *testing.T) {
	t.Run("application lookup failure is fatal", func(t *testing.T) {
		engine, provider, apps := setup(t)
		apps.FindErr = errors.New("db down")
		require.NoError(t, provider.Start(&consent.Interaction{
			UID:       "uid-5",
			Params:    consent.Params{ClientID: "console"},
			AccountID: "user-1",
		}))
		_, err := engine.Decide(t.Context(), "uid-5")
		require.Error(t, err)
		_, ok := provider.Finished("uid-5")
		require.False(t, ok)
	})

	t.Run("unknown application", func(t *testing.T) {
		engine, provider, _ := setup(t)
		require.NoError(t, provider.Start(&consent.Interaction{
			UID:       "uid-6",
			Params:    consent.Params{ClientID: "ghost"},
			AccountID: "user-1",
		}))
		_, err := engine.Decide(t.Context(), "uid-6")
		require.ErrorIs(t, err, iamerrors.ErrNotFound)
	})

	t.Run("unknown interaction", func(t *testing.T) {
		engine, _, _ := setup(t)
		_, err := engine.Decide(t.Context(), "missing")
		require.ErrorIs(t, err, iamerrors.ErrNotFound)
	})

	t.Run("no account", func(t *testing.T) {
		engine, provider, _ := setup(t)
		require.NoError(t, provider.Start(&consent.Interaction{UID: "uid-7", Params: consent.Params{ClientID: "console"}}))
		_, err := engine.Decide(t.Context(), "uid-7")
		require.ErrorIs(t, err, iamerrors.ErrUnauthenticated)
	})
}
