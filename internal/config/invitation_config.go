package config

import "time"

type InvitationConfig interface {
	GetInvitationExpiry() time.Duration
	GetInvitationPageSize() int
	GetInvitationMaxPageSize() int
}

type Invitation struct{}

var _ InvitationConfig = Invitation{}

func (Invitation) GetInvitationExpiry() time.Duration {
	return GetEnvDuration("INVITATION_EXPIRY", 7*24*time.Hour)
}

func (Invitation) GetInvitationPageSize() int {
	return GetEnvInt("INVITATION_PAGE_SIZE", 20)
}

func (Invitation) GetInvitationMaxPageSize() int {
	return GetEnvInt("INVITATION_MAX_PAGE_SIZE", 100)
}
