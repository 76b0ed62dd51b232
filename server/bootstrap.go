package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/internal/ids"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/jrsteele09/go-iam-server/tenants"
	"github.com/jrsteele09/go-iam-server/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSuperAdminUsername = "admin"
	generatedPasswordLength   = 20
)

var systemTenants = []tenants.Tenant{
	{ID: tenants.AdminTenantID, Name: "Admin", Tag: tenants.TagProduction},
	{ID: tenants.DefaultTenantID, Name: "Default", Tag: tenants.TagDevelopment},
}

// InitialiseSystem makes sure the system tenants, their organizations and an
// admin user exist. It is safe to run on every start.
func (s *Server) InitialiseSystem(ctx context.Context, tenantRepo tenants.Repo, orgs organizations.Repo, userRepo users.Repo) error {
	for _, t := range systemTenants {
		if err := ensureTenant(ctx, tenantRepo, orgs, t); err != nil {
			return fmt.Errorf("[Server InitialiseSystem] tenant %s: %w", t.ID, err)
		}
	}

	adminEmail := generateEmailFromBaseURL(DefaultSuperAdminUsername, s.config.GetBaseURL())
	generatedPassword, err := createSuperAdmin(ctx, userRepo, orgs, adminEmail)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] admin user: %w", err)
	}

	if generatedPassword != "" {
		log.Warn().
			Str("email", adminEmail).
			Str("password", generatedPassword).
			Msg("admin user created, save this password, it will not be displayed again")
	} else {
		log.Info().Str("baseUrl", s.config.GetBaseURL()).Msg("system already initialised")
	}
	return nil
}

func ensureTenant(ctx context.Context, repo tenants.Repo, orgs organizations.Repo, t tenants.Tenant) error {
	_, err := repo.FindByID(ctx, t.ID)
	if errors.Is(err, errors.ErrNotFound) {
		t.CreatedAt = time.Now().UTC()
		if err := repo.Insert(ctx, &t); err != nil && !errors.Is(err, errors.ErrConflict) {
			return err
		}
	} else if err != nil {
		return err
	}
	return orgs.Ensure(ctx, organizations.Organization{ID: organizations.IDForTenant(t.ID), Name: t.Name})
}

// createSuperAdmin returns the generated password, or an empty string when the
// admin already exists.
func createSuperAdmin(ctx context.Context, userRepo users.Repo, orgs organizations.Repo, email string) (string, error) {
	_, err := userRepo.FindByEmail(ctx, email)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return "", err
	}

	password, err := ids.Password(generatedPasswordLength)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	admin := &users.User{
		ID:           ids.New(),
		PrimaryEmail: email,
		Username:     DefaultSuperAdminUsername,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := userRepo.Insert(ctx, admin); err != nil {
		return "", err
	}
	orgID := organizations.IDForTenant(tenants.AdminTenantID)
	if err := orgs.AddMember(ctx, orgID, admin.ID, []organizations.RoleID{organizations.RoleAdmin}); err != nil {
		return "", fmt.Errorf("add admin membership: %w", err)
	}
	return password, nil
}

// generateEmailFromBaseURL creates an email address from a username and base URL
// Example: ("admin", "https://auth.example.com/path") -> "admin@auth.example.com"
func generateEmailFromBaseURL(user, baseURL string) string {
	domain := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	domain, _, _ = strings.Cut(domain, "/")
	domain, _, _ = strings.Cut(domain, ":")
	return fmt.Sprintf("%s@%s", user, domain)
}
