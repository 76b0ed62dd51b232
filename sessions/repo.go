package sessions

import (
	"context"
	"time"
)

type Repo interface {
	Upsert(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	ListByUserID(ctx context.Context, userID string) ([]*Session, error)

	// DeleteByUserID removes the user's sessions, keeping exceptID when it is
	// not empty, and returns how many were removed.
	DeleteByUserID(ctx context.Context, userID, exceptID string) (int, error)

	// DeleteExpired removes sessions that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
