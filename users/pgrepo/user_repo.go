package pgrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-iam-server/internal/database"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/users"
)

type UserRepo struct {
	db *sql.DB
}

var _ users.Repo = (*UserRepo)(nil)

func New(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const selectUser = `select id, coalesce(primary_email, ''), coalesce(username, ''), coalesce(password_hash, ''), mfa_factors, created_at from users`

func (r *UserRepo) Insert(ctx context.Context, user *users.User) error {
	factors, err := json.Marshal(nonNil(user.MfaFactors))
	if err != nil {
		return fmt.Errorf("[UserRepo.Insert] encode factors: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		insert into users (id, primary_email, username, password_hash, mfa_factors, created_at)
		values ($1, nullif($2, ''), nullif($3, ''), nullif($4, ''), $5, $6)`,
		user.ID, user.PrimaryEmail, user.Username, user.PasswordHash, factors, user.CreatedAt)
	if database.IsUniqueViolation(err) {
		return errors.Wrapf(errors.ErrConflict, "[UserRepo.Insert] user %s", user.ID)
	}
	if err != nil {
		return fmt.Errorf("[UserRepo.Insert] %w", err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, selectUser+` where id = $1`, id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, selectUser+` where lower(primary_email) = lower($1)`, email)
}

func (r *UserRepo) findOne(ctx context.Context, query string, arg string) (*users.User, error) {
	var (
		u       users.User
		factors []byte
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.PrimaryEmail, &u.Username, &u.PasswordHash, &factors, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "[UserRepo.findOne] user %s", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("[UserRepo.findOne] %w", err)
	}
	if err := json.Unmarshal(factors, &u.MfaFactors); err != nil {
		return nil, fmt.Errorf("[UserRepo.findOne] decode factors: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) AddMfaFactor(ctx context.Context, userID string, factor users.MfaFactor) error {
	encoded, err := json.Marshal([]users.MfaFactor{factor})
	if err != nil {
		return fmt.Errorf("[UserRepo.AddMfaFactor] encode: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `update users set mfa_factors = mfa_factors || $2::jsonb where id = $1`, userID, encoded)
	if err != nil {
		return fmt.Errorf("[UserRepo.AddMfaFactor] %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "[UserRepo.AddMfaFactor] user %s", userID)
	}
	return nil
}

func (r *UserRepo) HasMfaConfigured(ctx context.Context, userID string) (bool, error) {
	var configured bool
	err := r.db.QueryRowContext(ctx, `select exists (select 1 from users where id = $1 and jsonb_array_length(mfa_factors) > 0)`, userID).
		Scan(&configured)
	if err != nil {
		return false, fmt.Errorf("[UserRepo.HasMfaConfigured] %w", err)
	}
	return configured, nil
}

func nonNil(f []users.MfaFactor) []users.MfaFactor {
	if f == nil {
		return []users.MfaFactor{}
	}
	return f
}
