package config

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	DatabaseConfig
	DeploymentConfig
	InvitationConfig
	ConsentConfig
}

type EnvConfig interface {
	GetPort() string
	GetMetricsPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Database
	Deployment
	Invitation
	Consent
}

func New() Config {
	return mainConfig{}
}
