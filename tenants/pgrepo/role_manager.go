package pgrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-iam-server/tenants"
)

// RoleManager issues role DDL. Identifiers cannot be bound as parameters so
// they are quoted with pgx.
type RoleManager struct {
	db *sql.DB
}

var _ tenants.RoleManager = (*RoleManager)(nil)

func NewRoleManager(db *sql.DB) *RoleManager {
	return &RoleManager{db: db}
}

func (m *RoleManager) CreateRole(ctx context.Context, name, password string) error {
	stmt := fmt.Sprintf(`create role %s with inherit login password %s`,
		pgx.Identifier{name}.Sanitize(), quoteLiteral(password))
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("[RoleManager.CreateRole] %w", err)
	}
	return nil
}

func (m *RoleManager) DropRole(ctx context.Context, name string) error {
	if _, err := m.db.ExecContext(ctx, `drop role if exists `+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("[RoleManager.DropRole] %w", err)
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
