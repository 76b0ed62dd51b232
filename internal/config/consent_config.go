package config

import "time"

type ConsentConfig interface {
	GetConsentPageURL() string
	GetApplicationCacheSize() int
	GetApplicationCacheTTL() time.Duration
}

type Consent struct{}

var _ ConsentConfig = Consent{}

func (Consent) GetConsentPageURL() string {
	return GetEnv("CONSENT_PAGE_URL", "/consent")
}

func (Consent) GetApplicationCacheSize() int {
	return GetEnvInt("APPLICATION_CACHE_SIZE", 512)
}

func (Consent) GetApplicationCacheTTL() time.Duration {
	return GetEnvDuration("APPLICATION_CACHE_TTL", time.Minute)
}
