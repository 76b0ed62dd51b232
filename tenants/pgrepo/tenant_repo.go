package pgrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-iam-server/internal/database"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/tenants"
)

const tenantColumns = `id, name, tag, db_user, db_user_password, is_suspended, created_at`

type TenantRepo struct {
	db *sql.DB
}

var _ tenants.Repo = (*TenantRepo)(nil)

func New(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*tenants.Tenant, error) {
	var (
		t                tenants.Tenant
		tag              string
		dbUser, password sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Name, &tag, &dbUser, &password, &t.IsSuspended, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Tag = tenants.Tag(tag)
	t.DBUser = dbUser.String
	t.DBUserPassword = password.String
	return &t, nil
}

func (r *TenantRepo) Insert(ctx context.Context, t *tenants.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		insert into tenants (id, name, tag, db_user, db_user_password, created_at)
		values ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, string(t.Tag), t.DBUser, t.DBUserPassword, t.CreatedAt)
	if database.IsUniqueViolation(err) {
		return errors.Wrapf(errors.ErrConflict, "[TenantRepo.Insert] tenant %s", t.ID)
	}
	if err != nil {
		return fmt.Errorf("[TenantRepo.Insert] %w", err)
	}
	return nil
}

func (r *TenantRepo) FindByID(ctx context.Context, id string) (*tenants.Tenant, error) {
	t, err := scanTenant(r.db.QueryRowContext(ctx, `select `+tenantColumns+` from tenants where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "[TenantRepo.FindByID] tenant %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.FindByID] %w", err)
	}
	return t, nil
}

func (r *TenantRepo) FindSuspendStatusByID(ctx context.Context, id string) (tenants.SuspendStatus, error) {
	var status tenants.SuspendStatus
	err := r.db.QueryRowContext(ctx, `select is_suspended from tenants where id = $1`, id).Scan(&status.IsSuspended)
	if errors.Is(err, sql.ErrNoRows) {
		return status, errors.Wrapf(errors.ErrNotFound, "[TenantRepo.FindSuspendStatusByID] tenant %s", id)
	}
	if err != nil {
		return status, fmt.Errorf("[TenantRepo.FindSuspendStatusByID] %w", err)
	}
	return status, nil
}

func (r *TenantRepo) List(ctx context.Context) ([]*tenants.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
		select `+tenantColumns+`
		from tenants
		where id not in ('`+tenants.AdminTenantID+`', '`+tenants.DefaultTenantID+`')
		order by created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.List] %w", err)
	}
	defer rows.Close()

	list := make([]*tenants.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("[TenantRepo.List] scan: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update writes only the columns present in the patch.
func (r *TenantRepo) Update(ctx context.Context, id string, patch tenants.Patch) (*tenants.Tenant, error) {
	sets := make([]string, 0, 2)
	args := []any{id}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Tag != nil {
		args = append(args, string(*patch.Tag))
		sets = append(sets, fmt.Sprintf("tag = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	query := `update tenants set ` + strings.Join(sets, ", ") + ` where id = $1 returning ` + tenantColumns
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "[TenantRepo.Update] tenant %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.Update] %w", err)
	}
	return t, nil
}

func (r *TenantRepo) SetSuspended(ctx context.Context, id string, suspended bool) error {
	res, err := r.db.ExecContext(ctx, `update tenants set is_suspended = $2 where id = $1`, id, suspended)
	if err != nil {
		return fmt.Errorf("[TenantRepo.SetSuspended] %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "[TenantRepo.SetSuspended] tenant %s", id)
	}
	return nil
}

func (r *TenantRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from tenants where id = $1`, id)
	if err != nil {
		return fmt.Errorf("[TenantRepo.Delete] %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "[TenantRepo.Delete] tenant %s", id)
	}
	return nil
}
