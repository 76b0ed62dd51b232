package config

import "time"

type SecurityConfig interface {
	GetGuardStoreTimeout() time.Duration
	GetEnableRateLimiting() bool
	GetRateLimitPerSecond() int
	GetRateLimitBurst() int
	GetMaxBodyBytes() int64
	GetTrustedProxyHops() int
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetGuardStoreTimeout bounds membership lookups made while authorizing a request.
func (Security) GetGuardStoreTimeout() time.Duration {
	return GetEnvDuration("GUARD_STORE_TIMEOUT", 2*time.Second)
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnvBool("RATE_LIMIT_ENABLED", true)
}

func (Security) GetRateLimitPerSecond() int {
	return GetEnvInt("RATE_LIMIT_PER_SECOND", 5)
}

func (Security) GetRateLimitBurst() int {
	return GetEnvInt("RATE_LIMIT_BURST", 10)
}

func (Security) GetMaxBodyBytes() int64 {
	return int64(GetEnvInt("MAX_BODY_BYTES", 1<<20))
}

// GetTrustedProxyHops is the number of reverse proxies in front of the server
// that append to X-Forwarded-For. Zero means the header is ignored.
func (Security) GetTrustedProxyHops() int {
	return GetEnvInt("TRUSTED_PROXY_HOPS", 0)
}
