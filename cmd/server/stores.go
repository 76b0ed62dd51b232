package main

import (
	"context"
	"fmt"

	applicationrepofakes "github.com/jrsteele09/go-iam-server/applications/repofakes"
	applicationpg "github.com/jrsteele09/go-iam-server/applications/pgrepo"
	"github.com/jrsteele09/go-iam-server/consent/interactionrepo"
	"github.com/jrsteele09/go-iam-server/internal/config"
	"github.com/jrsteele09/go-iam-server/internal/database"
	invitationpg "github.com/jrsteele09/go-iam-server/invitations/pgrepo"
	invitationrepofakes "github.com/jrsteele09/go-iam-server/invitations/repofakes"
	orgpg "github.com/jrsteele09/go-iam-server/organizations/pgrepo"
	orgrepofakes "github.com/jrsteele09/go-iam-server/organizations/repofakes"
	"github.com/jrsteele09/go-iam-server/server"
	sessionpg "github.com/jrsteele09/go-iam-server/sessions/pgrepo"
	sessionrepofakes "github.com/jrsteele09/go-iam-server/sessions/repofakes"
	tenantpg "github.com/jrsteele09/go-iam-server/tenants/pgrepo"
	tenantrepofakes "github.com/jrsteele09/go-iam-server/tenants/repofakes"
	userpg "github.com/jrsteele09/go-iam-server/users/pgrepo"
	userrepofakes "github.com/jrsteele09/go-iam-server/users/repofakes"
	"github.com/rs/zerolog/log"
)

// buildDependencies wires postgres stores when DATABASE_URL is set and
// in-memory stores otherwise. OIDC interactions always live in memory.
func buildDependencies(ctx context.Context, c config.Config) (server.Dependencies, func(), error) {
	interactions := interactionrepo.NewInMemoryRepo(nil)

	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory stores")
		userRepo := userrepofakes.NewFakeUserRepo()
		orgRepo := orgrepofakes.NewFakeOrganizationRepo(orgrepofakes.WithMfaLookup(userRepo.HasMfaConfigured))
		return server.Dependencies{
			TenantRepo:    tenantrepofakes.NewFakeTenantRepo(),
			RoleManager:   tenantrepofakes.NewFakeRoleManager(),
			Organizations: orgRepo,
			Users:         userRepo,
			Invitations:   invitationrepofakes.NewFakeInvitationRepo(orgRepo),
			Sessions:      sessionrepofakes.NewFakeSessionRepo(),
			Consent:       interactions,
			Applications:  applicationrepofakes.NewFakeApplicationRepo(),
		}, func() {}, nil
	}

	db, err := database.Open(ctx, dsn, database.PoolOptions{
		MaxOpenConns:    c.GetDBMaxOpenConns(),
		MaxIdleConns:    c.GetDBMaxIdleConns(),
		ConnMaxLifetime: c.GetDBConnMaxLifetime(),
	})
	if err != nil {
		return server.Dependencies{}, nil, err
	}
	if c.GetApplySchema() {
		if err := database.ApplySchema(ctx, db); err != nil {
			_ = db.Close()
			return server.Dependencies{}, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Err(err).Msg("failed to close database")
		}
	}
	return server.Dependencies{
		TenantRepo:    tenantpg.New(db),
		RoleManager:   tenantpg.NewRoleManager(db),
		Organizations: orgpg.New(db),
		Users:         userpg.New(db),
		Invitations:   invitationpg.New(db),
		Sessions:      sessionpg.New(db),
		Consent:       interactions,
		Applications:  applicationpg.New(db),
	}, closeDB, nil
}
