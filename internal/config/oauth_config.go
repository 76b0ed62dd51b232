package config

import "strings"

// OAuthConfig describes the token issuer the service trusts for bearer tokens.
type OAuthConfig interface {
	GetIssuer() string
	GetJWKSURL() string
	GetAPIResourceIndicator() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetIssuer() string {
	return GetEnv("OIDC_ISSUER", EnvVars{}.GetBaseURL()+"/oidc")
}

func (o OAuth) GetJWKSURL() string {
	return GetEnv("OIDC_JWKS_URL", strings.TrimSuffix(o.GetIssuer(), "/")+"/jwks")
}

func (OAuth) GetAPIResourceIndicator() string {
	return GetEnv("API_RESOURCE_INDICATOR", "https://cloud.logto.io/api")
}
