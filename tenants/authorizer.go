package tenants

import (
	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/errors"
)

// ScopeAll satisfies every tenant operation.
const ScopeAll = "all"

type Operation int

const (
	OperationRead Operation = iota
	OperationWrite
	OperationDelete
)

func (o Operation) Scope() string {
	switch o {
	case OperationWrite:
		return "tenant:write"
	case OperationDelete:
		return "tenant:delete"
	}
	return "tenant:read"
}

const (
	ReasonUnauthenticated       = "unauthenticated"
	ReasonMissingScope          = "missing_scope"
	ReasonSystemTenantProtected = "system_tenant_protected"
)

// Authorizer checks tenant management scopes. Deleting a system tenant is
// refused even when the scope is present; reading and writing them is not.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

func (a *Authorizer) Authorize(principal *auth.Principal, op Operation, targetTenantID string) auth.Decision {
	if principal == nil {
		return auth.Deny(ReasonUnauthenticated,
			errors.NewCoded(errors.ErrUnauthenticated, errors.CodeUnauthorized, "authentication required", 0))
	}
	if principal.Scopes.Has(ScopeAll) {
		return auth.Allow()
	}
	if !principal.Scopes.Has(op.Scope()) {
		return auth.Deny(ReasonMissingScope,
			errors.NewCoded(errors.ErrForbidden, errors.CodeForbidden, "missing scope "+op.Scope(), 0))
	}
	if op == OperationDelete && targetTenantID != "" && IsSystemTenant(targetTenantID) {
		return auth.Deny(ReasonSystemTenantProtected,
			errors.NewCoded(errors.ErrForbidden, errors.CodeForbidden, "system tenant is protected", 0))
	}
	return auth.Allow()
}
