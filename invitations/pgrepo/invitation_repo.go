package pgrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/database"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/invitations"
	"github.com/jrsteele09/go-iam-server/organizations"
	orgpgrepo "github.com/jrsteele09/go-iam-server/organizations/pgrepo"
)

const invitationColumns = `id, organization_id, invitee, coalesce(inviter_id, ''), coalesce(accepted_user_id, ''), status, created_at, updated_at, expires_at`

type InvitationRepo struct {
	db *sql.DB
}

var _ invitations.Repo = (*InvitationRepo)(nil)

func New(db *sql.DB) *InvitationRepo {
	return &InvitationRepo{db: db}
}

func (r *InvitationRepo) Insert(ctx context.Context, inv *invitations.Invitation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[InvitationRepo.Insert] begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into organization_invitations
		  (id, organization_id, invitee, inviter_id, status, created_at, updated_at, expires_at)
		values ($1, $2, $3, nullif($4, ''), $5, $6, $7, $8)`,
		inv.ID, inv.OrganizationID, inv.Invitee, inv.InviterID, string(inv.Status), inv.CreatedAt, inv.UpdatedAt, inv.ExpiresAt)
	if database.IsUniqueViolation(err) {
		return errors.Wrapf(errors.ErrConflict, "[InvitationRepo.Insert] invitee %s", inv.Invitee)
	}
	if err != nil {
		return fmt.Errorf("[InvitationRepo.Insert] %w", err)
	}

	for _, role := range inv.Roles {
		if _, err := tx.ExecContext(ctx, `
			insert into organization_invitation_role_relations (organization_invitation_id, organization_role_id)
			values ($1, $2)`, inv.ID, string(role)); err != nil {
			return fmt.Errorf("[InvitationRepo.Insert] role %s: %w", role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[InvitationRepo.Insert] commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*invitations.Invitation, error) {
	var (
		inv    invitations.Invitation
		status string
	)
	if err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.Invitee, &inv.InviterID, &inv.AcceptedUserID,
		&status, &inv.CreatedAt, &inv.UpdatedAt, &inv.ExpiresAt); err != nil {
		return nil, err
	}
	inv.Status = invitations.Status(status)
	inv.Roles = []organizations.RoleID{}
	return &inv, nil
}

func (r *InvitationRepo) FindByID(ctx context.Context, id string) (*invitations.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx,
		`select `+invitationColumns+` from organization_invitations where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "[InvitationRepo.FindByID] invitation %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("[InvitationRepo.FindByID] %w", err)
	}

	if err := r.loadRoles(ctx, []*invitations.Invitation{inv}); err != nil {
		return nil, fmt.Errorf("[InvitationRepo.FindByID] %w", err)
	}
	return inv, nil
}

func (r *InvitationRepo) ListByOrganization(ctx context.Context, organizationID string, offset, limit int) (invitations.Page, error) {
	page := invitations.Page{Items: []*invitations.Invitation{}}
	if err := r.db.QueryRowContext(ctx,
		`select count(*) from organization_invitations where organization_id = $1`, organizationID).
		Scan(&page.Total); err != nil {
		return page, fmt.Errorf("[InvitationRepo.ListByOrganization] count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		select `+invitationColumns+`
		from organization_invitations
		where organization_id = $1
		order by id desc
		offset $2 limit $3`, organizationID, offset, limit)
	if err != nil {
		return page, fmt.Errorf("[InvitationRepo.ListByOrganization] %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return page, fmt.Errorf("[InvitationRepo.ListByOrganization] scan: %w", err)
		}
		page.Items = append(page.Items, inv)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("[InvitationRepo.ListByOrganization] %w", err)
	}

	if err := r.loadRoles(ctx, page.Items); err != nil {
		return page, fmt.Errorf("[InvitationRepo.ListByOrganization] %w", err)
	}
	return page, nil
}

func (r *InvitationRepo) loadRoles(ctx context.Context, items []*invitations.Invitation) error {
	for _, inv := range items {
		rows, err := r.db.QueryContext(ctx, `
			select organization_role_id from organization_invitation_role_relations
			where organization_invitation_id = $1
			order by organization_role_id`, inv.ID)
		if err != nil {
			return fmt.Errorf("roles for %s: %w", inv.ID, err)
		}
		for rows.Next() {
			var role string
			if err := rows.Scan(&role); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan role: %w", err)
			}
			inv.Roles = append(inv.Roles, organizations.RoleID(role))
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Accept runs the conditional status update and membership insert in one
// transaction. Only the caller whose update matched a pending row commits.
func (r *InvitationRepo) Accept(ctx context.Context, id, userID string, roles []organizations.RoleID, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[InvitationRepo.Accept] begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var organizationID string
	err = tx.QueryRowContext(ctx, `
		update organization_invitations
		set status = $2, accepted_user_id = $3, updated_at = $4
		where id = $1 and status = $5
		returning organization_id`,
		id, string(invitations.StatusAccepted), userID, at, string(invitations.StatusPending)).
		Scan(&organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(errors.ErrInvalidState, "[InvitationRepo.Accept] invitation %s is not pending", id)
	}
	if err != nil {
		return fmt.Errorf("[InvitationRepo.Accept] update: %w", err)
	}

	if err := orgpgrepo.InsertMembership(ctx, tx, organizationID, userID, roles); err != nil {
		return fmt.Errorf("[InvitationRepo.Accept] %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[InvitationRepo.Accept] commit: %w", err)
	}
	return nil
}

func (r *InvitationRepo) UpdateStatus(ctx context.Context, id string, status invitations.Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		update organization_invitations
		set status = $2, updated_at = $3
		where id = $1 and status = $4`,
		id, string(status), at, string(invitations.StatusPending))
	if err != nil {
		return fmt.Errorf("[InvitationRepo.UpdateStatus] %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrInvalidState, "[InvitationRepo.UpdateStatus] invitation %s is not pending", id)
	}
	return nil
}
