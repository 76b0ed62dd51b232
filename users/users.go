package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type MfaFactorType string

const (
	MfaTotp       MfaFactorType = "Totp"
	MfaWebAuthn   MfaFactorType = "WebAuthn"
	MfaBackupCode MfaFactorType = "BackupCode"
)

type MfaFactor struct {
	ID        string        `json:"id"`
	Type      MfaFactorType `json:"type"`
	CreatedAt time.Time     `json:"createdAt"`
}

type User struct {
	ID           string      `json:"id"`
	PrimaryEmail string      `json:"primaryEmail,omitempty"`
	Username     string      `json:"username,omitempty"`
	PasswordHash string      `json:"-"`
	MfaFactors   []MfaFactor `json:"mfaFactors,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// HasMfaConfigured is true once the user has enrolled at least one factor.
func (u *User) HasMfaConfigured() bool {
	return len(u.MfaFactors) > 0
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
