package pgrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/organizations"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type OrganizationRepo struct {
	db *sql.DB
}

var _ organizations.Repo = (*OrganizationRepo)(nil)

func New(db *sql.DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

func (r *OrganizationRepo) Ensure(ctx context.Context, org organizations.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		insert into organizations (id, name, is_mfa_required)
		values ($1, $2, $3)
		on conflict (id) do nothing`,
		org.ID, org.Name, org.IsMfaRequired)
	if err != nil {
		return fmt.Errorf("[OrganizationRepo.Ensure] %w", err)
	}
	return nil
}

func (r *OrganizationRepo) Delete(ctx context.Context, organizationID string) error {
	if _, err := r.db.ExecContext(ctx, `delete from organizations where id = $1`, organizationID); err != nil {
		return fmt.Errorf("[OrganizationRepo.Delete] %w", err)
	}
	return nil
}

func (r *OrganizationRepo) IsMember(ctx context.Context, organizationID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		select exists (
			select 1 from organization_user_relations
			where organization_id = $1 and user_id = $2
		)`, organizationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("[OrganizationRepo.IsMember] %w", err)
	}
	return exists, nil
}

func (r *OrganizationRepo) MfaRequirement(ctx context.Context, organizationID, userID string) (organizations.MfaRequirement, error) {
	var req organizations.MfaRequirement
	err := r.db.QueryRowContext(ctx, `
		select o.is_mfa_required,
		       coalesce(jsonb_array_length(u.mfa_factors) > 0, false)
		from organizations o
		left join users u on u.id = $2
		where o.id = $1`, organizationID, userID).
		Scan(&req.IsMfaRequired, &req.HasMfaConfigured)
	if errors.Is(err, sql.ErrNoRows) {
		return req, errors.Wrapf(errors.ErrNotFound, "[OrganizationRepo.MfaRequirement] organization %s", organizationID)
	}
	if err != nil {
		return req, fmt.Errorf("[OrganizationRepo.MfaRequirement] %w", err)
	}
	return req, nil
}

func (r *OrganizationRepo) AddMember(ctx context.Context, organizationID, userID string, roles []organizations.RoleID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[OrganizationRepo.AddMember] begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := InsertMembership(ctx, tx, organizationID, userID, roles); err != nil {
		return fmt.Errorf("[OrganizationRepo.AddMember] %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[OrganizationRepo.AddMember] commit: %w", err)
	}
	return nil
}

// InsertMembership writes the member row and its roles. Callers own the transaction.
func InsertMembership(ctx context.Context, q Execer, organizationID, userID string, roles []organizations.RoleID) error {
	if _, err := q.ExecContext(ctx, `
		insert into organization_user_relations (organization_id, user_id)
		values ($1, $2)
		on conflict do nothing`, organizationID, userID); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	for _, role := range roles {
		if _, err := q.ExecContext(ctx, `
			insert into organization_role_user_relations (organization_id, user_id, organization_role_id)
			values ($1, $2, $3)
			on conflict do nothing`, organizationID, userID, string(role)); err != nil {
			return fmt.Errorf("insert member role %s: %w", role, err)
		}
	}
	return nil
}

func (r *OrganizationRepo) RemoveMember(ctx context.Context, organizationID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		delete from organization_user_relations
		where organization_id = $1 and user_id = $2`, organizationID, userID)
	if err != nil {
		return fmt.Errorf("[OrganizationRepo.RemoveMember] %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "[OrganizationRepo.RemoveMember] member %s", userID)
	}
	return nil
}

func (r *OrganizationRepo) UpdateMemberRoles(ctx context.Context, organizationID, userID string, roles []organizations.RoleID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[OrganizationRepo.UpdateMemberRoles] begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `
		select 1 from organization_user_relations
		where organization_id = $1 and user_id = $2
		for update`, organizationID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(errors.ErrNotFound, "[OrganizationRepo.UpdateMemberRoles] member %s", userID)
	}
	if err != nil {
		return fmt.Errorf("[OrganizationRepo.UpdateMemberRoles] lock member: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		delete from organization_role_user_relations
		where organization_id = $1 and user_id = $2`, organizationID, userID); err != nil {
		return fmt.Errorf("[OrganizationRepo.UpdateMemberRoles] clear: %w", err)
	}
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx, `
			insert into organization_role_user_relations (organization_id, user_id, organization_role_id)
			values ($1, $2, $3)`, organizationID, userID, string(role)); err != nil {
			return fmt.Errorf("[OrganizationRepo.UpdateMemberRoles] insert %s: %w", role, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[OrganizationRepo.UpdateMemberRoles] commit: %w", err)
	}
	return nil
}

func (r *OrganizationRepo) ListMembers(ctx context.Context, organizationID string) ([]organizations.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		select m.user_id, coalesce(rr.organization_role_id, '')
		from organization_user_relations m
		left join organization_role_user_relations rr
		  on rr.organization_id = m.organization_id and rr.user_id = m.user_id
		where m.organization_id = $1
		order by m.user_id, rr.organization_role_id`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("[OrganizationRepo.ListMembers] %w", err)
	}
	defer rows.Close()

	members := make([]organizations.Member, 0)
	for rows.Next() {
		var userID, roleID string
		if err := rows.Scan(&userID, &roleID); err != nil {
			return nil, fmt.Errorf("[OrganizationRepo.ListMembers] scan: %w", err)
		}
		if len(members) == 0 || members[len(members)-1].UserID != userID {
			members = append(members, organizations.Member{UserID: userID, Roles: []organizations.RoleID{}})
		}
		if roleID != "" {
			last := &members[len(members)-1]
			last.Roles = append(last.Roles, organizations.RoleID(roleID))
		}
	}
	return members, rows.Err()
}

func (r *OrganizationRepo) OrganizationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		select organization_id from organization_user_relations
		where user_id = $1
		order by organization_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("[OrganizationRepo.OrganizationIDsForUser] %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("[OrganizationRepo.OrganizationIDsForUser] scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
