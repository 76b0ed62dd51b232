package applicationrepofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-iam-server/applications"
	"github.com/jrsteele09/go-iam-server/internal/errors"
)

var _ applications.Repo = (*FakeApplicationRepo)(nil)

type FakeApplicationRepo struct {
	apps  map[string]*applications.Application
	reads int
	lock  sync.RWMutex

	FindErr error
}

func NewFakeApplicationRepo() *FakeApplicationRepo {
	return &FakeApplicationRepo{apps: make(map[string]*applications.Application)}
}

func (r *FakeApplicationRepo) FindByID(_ context.Context, id string) (*applications.Application, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reads++
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	app, ok := r.apps[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "application %s", id)
	}
	cp := *app
	return &cp, nil
}

func (r *FakeApplicationRepo) Upsert(_ context.Context, app *applications.Application) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *FakeApplicationRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.apps, id)
	return nil
}

// Reads counts FindByID calls, hits and misses alike.
func (r *FakeApplicationRepo) Reads() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.reads
}
