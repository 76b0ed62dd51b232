package users

import "context"

type Repo interface {
	Insert(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	AddMfaFactor(ctx context.Context, userID string, factor MfaFactor) error

	// HasMfaConfigured reports whether the user has enrolled any factor.
	// Unknown users have none.
	HasMfaConfigured(ctx context.Context, userID string) (bool, error)
}
