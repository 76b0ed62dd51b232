package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-iam-server/applications"
	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/consent"
	"github.com/jrsteele09/go-iam-server/internal/config"
	"github.com/jrsteele09/go-iam-server/internal/metrics"
	"github.com/jrsteele09/go-iam-server/invitations"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/jrsteele09/go-iam-server/sessions"
	"github.com/jrsteele09/go-iam-server/tenants"
	"github.com/jrsteele09/go-iam-server/users"
	"github.com/rs/zerolog/log"
)

// Dependencies are the stores and services the HTTP surface is built on.
type Dependencies struct {
	Verifier      auth.Verifier
	Metrics       *metrics.Recorder
	TenantRepo    tenants.Repo
	RoleManager   tenants.RoleManager
	Organizations organizations.Repo
	Users         users.Repo
	Invitations   invitations.Repo
	Sessions      sessions.Repo
	Consent       consent.Provider
	Applications  applications.Finder
}

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	metrics *metrics.Recorder

	verifier    auth.Verifier
	tenants     *tenants.Service
	invitations *invitations.Manager
	members     *organizations.Members
	users       users.Repo
	sessions    *sessions.Service
	consent     *consent.Engine

	suspension  *tenants.SuspensionGuard
	membership  *organizations.Guard
	tenantAuthz *tenants.Authorizer
	limiter     *ipRateLimiter
}

func New(ctx context.Context, cfg config.Config, deps Dependencies) (*Server, error) {
	mode := cfg.GetDeploymentMode()
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.New()
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		metrics:  recorder,
		verifier: deps.Verifier,
		users:    deps.Users,
		tenants:  tenants.NewService(deps.TenantRepo, deps.RoleManager, deps.Organizations),
		invitations: invitations.NewManager(deps.Invitations, deps.TenantRepo, deps.Organizations, mode,
			invitations.WithExpiry(cfg.GetInvitationExpiry()),
			invitations.WithMaxPageSize(cfg.GetInvitationMaxPageSize())),
		members:     organizations.NewMembers(deps.Organizations),
		sessions:    sessions.NewService(deps.Sessions),
		consent:     consent.NewEngine(deps.Consent, newApplicationFinder(cfg, deps.Applications)),
		suspension:  tenants.NewSuspensionGuard(deps.TenantRepo, mode),
		membership:  organizations.NewGuard(deps.Organizations, organizations.WithStoreTimeout(cfg.GetGuardStoreTimeout())),
		tenantAuthz: tenants.NewAuthorizer(),
		limiter:     newIPRateLimiter(cfg.GetRateLimitPerSecond(), cfg.GetRateLimitBurst()),
	}

	if err := s.InitialiseSystem(ctx, deps.TenantRepo, deps.Organizations, deps.Users); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Sessions exposes the session service so background jobs can purge expired rows.
func (s *Server) Sessions() *sessions.Service {
	return s.sessions
}

func (s *Server) Metrics() *metrics.Recorder {
	return s.metrics
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "*", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}
