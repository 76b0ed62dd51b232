package sessions

import "time"

// Session is a signed in OIDC session. Revoking it ends every grant that
// was issued through it.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ClientID  string    `json:"clientId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
