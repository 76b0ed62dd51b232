package errors

import (
	"errors"
	"net/http"
)

// Machine readable codes returned to API clients.
const (
	CodeUnauthorized          = "auth.unauthorized"
	CodeForbidden             = "auth.forbidden"
	CodeNotFound              = "entity.not_found"
	CodeConflict              = "entity.conflict"
	CodeInvalidInput          = "guard.invalid_input"
	CodeTenantSuspended       = "subscription.tenant_suspended"
	CodeSystemTenantProtected = "tenant.system_tenant_protected"
	CodeInternal              = "internal_server_error"
	CodeRateLimited           = "request.rate_limited"

	CodeInvitationNotFound      = "invitation.not_found"
	CodeInvitationInvalidEmail  = "invitation.invalid_email"
	CodeInvitationInvalidStatus = "invitation.invalid_status"
	CodeInvitationExpired       = "invitation.expired"
	CodeInvitationNoRoles       = "invitation.no_roles"
	CodeInvitationConflict      = "invitation.conflict"

	CodeOrganizationLastAdmin = "organization.last_admin"
)

const internalMessage = "an internal error occurred"

// Coded is an error that carries a stable code alongside the kind it belongs to.
type Coded struct {
	Kind    error
	Code    string
	Message string
	Status  int
}

func (c *Coded) Error() string {
	if c.Message != "" {
		return c.Code + ": " + c.Message
	}
	return c.Code
}

func (c *Coded) Unwrap() error {
	return c.Kind
}

// NewCoded builds a coded error. A zero status falls back to the kind's default.
func NewCoded(kind error, code, message string, status int) *Coded {
	if status == 0 {
		status = kindStatus(kind)
	}
	return &Coded{Kind: kind, Code: code, Message: message, Status: status}
}

// Describe maps any error to the status, code and message exposed over HTTP.
// Unknown errors never leak their text.
func Describe(err error) (status int, code string, message string) {
	var coded *Coded
	if errors.As(err, &coded) {
		if coded.Status == http.StatusInternalServerError {
			return coded.Status, CodeInternal, internalMessage
		}
		msg := coded.Message
		if msg == "" {
			msg = coded.Kind.Error()
		}
		return coded.Status, coded.Code, msg
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthorized, ErrUnauthenticated.Error()
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden, ErrForbidden.Error()
	case errors.Is(err, ErrTenantSuspended):
		return http.StatusForbidden, CodeTenantSuspended, ErrTenantSuspended.Error()
	case errors.Is(err, ErrSystemTenantProtected):
		return http.StatusForbidden, CodeSystemTenantProtected, ErrSystemTenantProtected.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound, ErrNotFound.Error()
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CodeConflict, ErrConflict.Error()
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput, ErrInvalidInput.Error()
	}
	return http.StatusInternalServerError, CodeInternal, internalMessage
}

func kindStatus(kind error) int {
	switch {
	case errors.Is(kind, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(kind, ErrForbidden),
		errors.Is(kind, ErrTenantSuspended),
		errors.Is(kind, ErrSystemTenantProtected):
		return http.StatusForbidden
	case errors.Is(kind, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(kind, ErrExpired), errors.Is(kind, ErrInvalidState):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
