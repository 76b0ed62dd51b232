package consent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-iam-server/applications"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// Outcome of a consent decision. When Handled is false the caller moves on
// to the explicit consent screen.
type Outcome struct {
	Handled  bool
	Redirect string
	GrantID  string
}

type Engine struct {
	provider Provider
	apps     applications.Finder
	newID    func() string
}

type EngineOption func(*Engine)

func WithGrantIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

func NewEngine(provider Provider, apps applications.Finder, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: provider,
		apps:     apps,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide auto-consents first party applications. The grant ends up holding
// exactly the scopes it had before plus the ones the prompt reported missing.
func (e *Engine) Decide(ctx context.Context, uid string) (Outcome, error) {
	interaction, err := e.provider.InteractionDetails(ctx, uid)
	if err != nil {
		return Outcome{}, fmt.Errorf("[Engine.Decide] interaction details: %w", err)
	}
	if interaction.AccountID == "" {
		return Outcome{}, errors.NewCoded(errors.ErrUnauthenticated, "session.not_found", "interaction has no signed in account", 0)
	}

	app, err := e.application(ctx, interaction.Params.ClientID)
	if err != nil {
		return Outcome{}, err
	}
	if app.IsThirdParty {
		log.Debug().Str("clientId", app.ID).Str("uid", uid).Msg("third party application requires explicit consent")
		return Outcome{}, nil
	}

	grant, err := e.loadOrCreateGrant(ctx, interaction)
	if err != nil {
		return Outcome{}, err
	}

	if interaction.Prompt.Name == PromptConsent {
		grant.AddOIDCScopes(interaction.Prompt.Details.MissingOIDCScope...)
		for indicator, scopes := range interaction.Prompt.Details.MissingResourceScopes {
			grant.AddResourceScopes(indicator, scopes...)
		}
	}

	grantID, err := e.provider.SaveGrant(ctx, grant)
	if err != nil {
		return Outcome{}, fmt.Errorf("[Engine.Decide] save grant: %w", err)
	}

	redirect, err := e.provider.FinishInteraction(ctx, uid, Result{GrantID: grantID})
	if err != nil {
		return Outcome{}, fmt.Errorf("[Engine.Decide] finish interaction: %w", err)
	}
	return Outcome{Handled: true, Redirect: redirect, GrantID: grantID}, nil
}

func (e *Engine) application(ctx context.Context, clientID string) (*applications.Application, error) {
	if clientID == applications.DemoAppID {
		return applications.DemoApp(), nil
	}
	app, err := e.apps.FindByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("[Engine.application] %s: %w", clientID, err)
	}
	return app, nil
}

func (e *Engine) loadOrCreateGrant(ctx context.Context, interaction *Interaction) (*Grant, error) {
	if interaction.GrantID != "" {
		grant, err := e.provider.FindGrant(ctx, interaction.GrantID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("[Engine.loadOrCreateGrant] %w", err)
		}
		if grant != nil {
			return grant, nil
		}
	}
	return &Grant{
		ID:        e.newID(),
		AccountID: interaction.AccountID,
		ClientID:  interaction.Params.ClientID,
	}, nil
}
