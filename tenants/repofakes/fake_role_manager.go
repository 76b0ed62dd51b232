package tenantrepofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-iam-server/tenants"
)

var _ tenants.RoleManager = (*FakeRoleManager)(nil)

// FakeRoleManager keeps roles in memory and records the order of calls.
type FakeRoleManager struct {
	roles map[string]string
	calls []string
	lock  sync.Mutex

	CreateErr error
	DropErr   error
}

func NewFakeRoleManager() *FakeRoleManager {
	return &FakeRoleManager{roles: make(map[string]string)}
}

func (m *FakeRoleManager) CreateRole(_ context.Context, name, password string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls = append(m.calls, "create:"+name)
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.roles[name] = password
	return nil
}

func (m *FakeRoleManager) DropRole(_ context.Context, name string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls = append(m.calls, "drop:"+name)
	if m.DropErr != nil {
		return m.DropErr
	}
	delete(m.roles, name)
	return nil
}

func (m *FakeRoleManager) HasRole(name string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	_, ok := m.roles[name]
	return ok
}

func (m *FakeRoleManager) Calls() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]string(nil), m.calls...)
}
