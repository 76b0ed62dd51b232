package tenantrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]*tenants.Tenant
	writes  int
	lock    sync.RWMutex

	// FailOn makes the named method return the error. Used to exercise failure paths.
	FailOn map[string]error
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
		FailOn:  make(map[string]error),
	}
}

// Writes counts successful mutating calls.
func (tr *FakeTenantRepo) Writes() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return tr.writes
}

func (tr *FakeTenantRepo) Insert(_ context.Context, tenant *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if err := tr.FailOn["Insert"]; err != nil {
		return err
	}
	if _, ok := tr.tenants[tenant.ID]; ok {
		return errors.Wrapf(errors.ErrConflict, "tenant %s", tenant.ID)
	}
	cp := *tenant
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	tr.tenants[tenant.ID] = &cp
	tr.writes++
	return nil
}

func (tr *FakeTenantRepo) FindByID(_ context.Context, id string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	if err := tr.FailOn["FindByID"]; err != nil {
		return nil, err
	}
	t, ok := tr.tenants[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "tenant %s", id)
	}
	cp := *t
	return &cp, nil
}

func (tr *FakeTenantRepo) FindSuspendStatusByID(_ context.Context, id string) (tenants.SuspendStatus, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	if err := tr.FailOn["FindSuspendStatusByID"]; err != nil {
		return tenants.SuspendStatus{}, err
	}
	t, ok := tr.tenants[id]
	if !ok {
		return tenants.SuspendStatus{}, errors.Wrapf(errors.ErrNotFound, "tenant %s", id)
	}
	return tenants.SuspendStatus{IsSuspended: t.IsSuspended}, nil
}

func (tr *FakeTenantRepo) List(_ context.Context) ([]*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	list := make([]*tenants.Tenant, 0, len(tr.tenants))
	for _, t := range tr.tenants {
		if tenants.IsSystemTenant(t.ID) {
			continue
		}
		cp := *t
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (tr *FakeTenantRepo) Update(_ context.Context, id string, patch tenants.Patch) (*tenants.Tenant, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if err := tr.FailOn["Update"]; err != nil {
		return nil, err
	}
	t, ok := tr.tenants[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "tenant %s", id)
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Tag != nil {
		t.Tag = *patch.Tag
	}
	tr.writes++
	cp := *t
	return &cp, nil
}

func (tr *FakeTenantRepo) SetSuspended(_ context.Context, id string, suspended bool) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	t, ok := tr.tenants[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "tenant %s", id)
	}
	t.IsSuspended = suspended
	tr.writes++
	return nil
}

func (tr *FakeTenantRepo) Delete(_ context.Context, id string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if err := tr.FailOn["Delete"]; err != nil {
		return err
	}
	if _, ok := tr.tenants[id]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "tenant %s", id)
	}
	delete(tr.tenants, id)
	tr.writes++
	return nil
}
