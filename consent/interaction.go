package consent

import (
	"context"
	"slices"
)

// PromptConsent is the only prompt the engine acts on.
const PromptConsent = "consent"

type Params struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
}

type PromptDetails struct {
	MissingOIDCScope      []string            `json:"missingOIDCScope,omitempty"`
	MissingResourceScopes map[string][]string `json:"missingResourceScopes,omitempty"`
}

type Prompt struct {
	Name    string        `json:"name"`
	Details PromptDetails `json:"details"`
}

// Interaction is the provider's view of a pending login interaction.
type Interaction struct {
	UID       string `json:"uid"`
	Params    Params `json:"params"`
	Prompt    Prompt `json:"prompt"`
	AccountID string `json:"accountId"`
	GrantID   string `json:"grantId,omitempty"`
}

// Grant records the scopes an account has consented to for one client.
type Grant struct {
	ID             string
	AccountID      string
	ClientID       string
	OIDCScopes     []string
	ResourceScopes map[string][]string
}

// AddOIDCScopes adds each scope once.
func (g *Grant) AddOIDCScopes(scopes ...string) {
	g.OIDCScopes = union(g.OIDCScopes, scopes)
}

func (g *Grant) AddResourceScopes(indicator string, scopes ...string) {
	if g.ResourceScopes == nil {
		g.ResourceScopes = make(map[string][]string)
	}
	g.ResourceScopes[indicator] = union(g.ResourceScopes[indicator], scopes)
}

func union(have, add []string) []string {
	out := slices.Clone(have)
	for _, s := range add {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Result is handed back to the provider to complete the interaction.
type Result struct {
	GrantID string
}

// Provider is the slice of the OIDC provider the engine depends on.
type Provider interface {
	InteractionDetails(ctx context.Context, uid string) (*Interaction, error)
	FindGrant(ctx context.Context, grantID string) (*Grant, error)
	SaveGrant(ctx context.Context, grant *Grant) (string, error)
	FinishInteraction(ctx context.Context, uid string, result Result) (string, error)
}
