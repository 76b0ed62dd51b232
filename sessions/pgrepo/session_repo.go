package pgrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/sessions"
)

type SessionRepo struct {
	db *sql.DB
}

var _ sessions.Repo = (*SessionRepo)(nil)

func New(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Upsert(ctx context.Context, s *sessions.Session) error {
	_, err := r.db.ExecContext(ctx, `
		insert into oidc_sessions (id, user_id, client_id, created_at, expires_at)
		values ($1, $2, nullif($3, ''), $4, $5)
		on conflict (id) do update set expires_at = excluded.expires_at`,
		s.ID, s.UserID, s.ClientID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("[SessionRepo.Upsert] %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	var s sessions.Session
	err := r.db.QueryRowContext(ctx, `
		select id, user_id, coalesce(client_id, ''), created_at, expires_at
		from oidc_sessions where id = $1`, sessionID).
		Scan(&s.ID, &s.UserID, &s.ClientID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "[SessionRepo.Get] session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("[SessionRepo.Get] %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) ListByUserID(ctx context.Context, userID string) ([]*sessions.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, user_id, coalesce(client_id, ''), created_at, expires_at
		from oidc_sessions where user_id = $1 order by created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("[SessionRepo.ListByUserID] %w", err)
	}
	defer rows.Close()

	var out []*sessions.Session
	for rows.Next() {
		var s sessions.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.ClientID, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("[SessionRepo.ListByUserID] scan: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SessionRepo) DeleteByUserID(ctx context.Context, userID, exceptID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `delete from oidc_sessions where user_id = $1 and id <> $2`, userID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo.DeleteByUserID] %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo.DeleteByUserID] rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `delete from oidc_sessions where expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo.DeleteExpired] %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo.DeleteExpired] rows affected: %w", err)
	}
	return int(n), nil
}
