package tenants

import "context"

type SuspendStatusFinder interface {
	FindSuspendStatusByID(ctx context.Context, id string) (SuspendStatus, error)
}

type Repo interface {
	SuspendStatusFinder

	Insert(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id string) (*Tenant, error)
	// List returns every tenant except the system tenants.
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, id string, patch Patch) (*Tenant, error)
	SetSuspended(ctx context.Context, id string, suspended bool) error
	Delete(ctx context.Context, id string) error
}

// RoleManager owns the database role each tenant connects with.
type RoleManager interface {
	CreateRole(ctx context.Context, name, password string) error
	DropRole(ctx context.Context, name string) error
}
