package tenants

import (
	"fmt"
	"time"
)

// Tag marks what a tenant is used for.
type Tag string

const (
	TagDevelopment Tag = "development"
	TagProduction  Tag = "production"
)

func ParseTag(s string) (Tag, error) {
	switch Tag(s) {
	case TagDevelopment, TagProduction:
		return Tag(s), nil
	}
	return "", fmt.Errorf("unknown tenant tag %q", s)
}

// System tenants are never deleted and never listed.
const (
	AdminTenantID   = "admin"
	DefaultTenantID = "default"
)

func IsSystemTenant(id string) bool {
	return id == AdminTenantID || id == DefaultTenantID
}

const dbRolePrefix = "logto_tenant_"

// RoleName returns the database role dedicated to a tenant.
func RoleName(tenantID string) string {
	return dbRolePrefix + tenantID
}

type Tenant struct {
	ID             string
	Name           string
	Tag            Tag
	DBUser         string
	DBUserPassword string
	CreatedAt      time.Time
	IsSuspended    bool
}

// Response is the shape returned by the management API. Credentials never leave the service.
type Response struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tag         Tag       `json:"tag"`
	CreatedAt   time.Time `json:"createdAt"`
	IsSuspended bool      `json:"isSuspended"`
}

func (t *Tenant) Response() Response {
	return Response{
		ID:          t.ID,
		Name:        t.Name,
		Tag:         t.Tag,
		CreatedAt:   t.CreatedAt,
		IsSuspended: t.IsSuspended,
	}
}

// Patch lists the fields an update may touch. Nil fields are left alone.
type Patch struct {
	Name *string `json:"name,omitempty"`
	Tag  *Tag    `json:"tag,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Tag == nil
}

type SuspendStatus struct {
	IsSuspended bool
}
