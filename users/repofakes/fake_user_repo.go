package userrepofakes

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIDs map[string]string
	lock     sync.RWMutex

	MfaErr error
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIDs: make(map[string]string),
	}
}

func (r *FakeUserRepo) Insert(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return errors.Wrapf(errors.ErrConflict, "user %s", user.ID)
	}
	email := strings.ToLower(user.PrimaryEmail)
	if email != "" {
		if _, ok := r.emailIDs[email]; ok {
			return errors.Wrapf(errors.ErrConflict, "email %s", user.PrimaryEmail)
		}
		r.emailIDs[email] = user.ID
	}
	r.users[user.ID] = clone(user)
	return nil
}

func (r *FakeUserRepo) FindByID(_ context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "user %s", id)
	}
	return clone(u), nil
}

func (r *FakeUserRepo) FindByEmail(_ context.Context, email string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.emailIDs[strings.ToLower(email)]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "user with email %s", email)
	}
	return clone(r.users[id]), nil
}

func (r *FakeUserRepo) AddMfaFactor(_ context.Context, userID string, factor users.MfaFactor) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "user %s", userID)
	}
	u.MfaFactors = append(u.MfaFactors, factor)
	return nil
}

func (r *FakeUserRepo) HasMfaConfigured(_ context.Context, userID string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.MfaErr != nil {
		return false, r.MfaErr
	}
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	return u.HasMfaConfigured(), nil
}

func clone(u *users.User) *users.User {
	cp := *u
	cp.MfaFactors = slices.Clone(u.MfaFactors)
	return &cp
}
