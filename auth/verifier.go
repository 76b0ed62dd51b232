package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-iam-server/internal/errors"
)

// Verifier turns a raw bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Principal, error)
}

type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier verifies tokens against the issuer's remote JWKS.
func NewOIDCVerifier(ctx context.Context, issuer, jwksURL string) *OIDCVerifier {
	return NewOIDCVerifierWithKeySet(issuer, oidc.NewRemoteKeySet(ctx, jwksURL))
}

func NewOIDCVerifierWithKeySet(issuer string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{
		// Access tokens carry resource or organization audiences, not a client id.
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{SkipClientIDCheck: true}),
	}
}

type accessTokenClaims struct {
	Subject   string          `json:"sub"`
	Scope     string          `json:"scope"`
	Audience  json.RawMessage `json:"aud"`
	SessionID string          `json:"sid"`
	ClientID  string          `json:"client_id"`
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnauthenticated, "[OIDCVerifier.Verify] %s", err.Error())
	}

	var claims accessTokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, errors.Wrapf(errors.ErrUnauthenticated, "[OIDCVerifier.Verify] claims: %s", err.Error())
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("[OIDCVerifier.Verify] missing subject: %w", errors.ErrUnauthenticated)
	}

	return &Principal{
		ID:        claims.Subject,
		ClientID:  claims.ClientID,
		SessionID: claims.SessionID,
		Scopes:    ParseScopes(claims.Scope),
		Audience:  ParseAudience(claims.Audience),
	}, nil
}

// ExtractBearerToken returns the token from an Authorization header value.
func ExtractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
