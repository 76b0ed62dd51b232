package sessionrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex

	DeleteErr error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "session %s", sessionID)
	}
	cp := *s
	return &cp, nil
}

func (r *FakeSessionRepo) ListByUserID(_ context.Context, userID string) ([]*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var out []*sessions.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *FakeSessionRepo) DeleteByUserID(_ context.Context, userID, exceptID string) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}
	n := 0
	for id, s := range r.sessions {
		if s.UserID == userID && id != exceptID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *FakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
