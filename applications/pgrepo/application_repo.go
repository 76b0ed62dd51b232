package pgrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jrsteele09/go-iam-server/applications"
	"github.com/jrsteele09/go-iam-server/internal/errors"
)

type ApplicationRepo struct {
	db *sql.DB
}

var _ applications.Repo = (*ApplicationRepo)(nil)

func New(db *sql.DB) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

func (r *ApplicationRepo) FindByID(ctx context.Context, id string) (*applications.Application, error) {
	var app applications.Application
	err := r.db.QueryRowContext(ctx, `select id, name, is_third_party from applications where id = $1`, id).
		Scan(&app.ID, &app.Name, &app.IsThirdParty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "[ApplicationRepo.FindByID] application %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("[ApplicationRepo.FindByID] %w", err)
	}
	return &app, nil
}

func (r *ApplicationRepo) Upsert(ctx context.Context, app *applications.Application) error {
	_, err := r.db.ExecContext(ctx, `
		insert into applications (id, name, is_third_party)
		values ($1, $2, $3)
		on conflict (id) do update set name = excluded.name, is_third_party = excluded.is_third_party`,
		app.ID, app.Name, app.IsThirdParty)
	if err != nil {
		return fmt.Errorf("[ApplicationRepo.Upsert] %w", err)
	}
	return nil
}

func (r *ApplicationRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `delete from applications where id = $1`, id); err != nil {
		return fmt.Errorf("[ApplicationRepo.Delete] %w", err)
	}
	return nil
}
