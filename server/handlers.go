package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/invitations"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/jrsteele09/go-iam-server/sessions"
	"github.com/jrsteele09/go-iam-server/tenants"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

// writeError maps err onto the public error shape. Internal details are logged, never returned.
func writeError(w http.ResponseWriter, err error) {
	status, code, msg := errors.Describe(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvalidInput, "malformed request body", 0)
	}
	return nil
}

func invalidInput(msg string) error {
	return errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvalidInput, msg, 0)
}

func tenantResponses(list []*tenants.Tenant) []tenants.Response {
	out := make([]tenants.Response, 0, len(list))
	for _, t := range list {
		out = append(out, t.Response())
	}
	return out
}

func (s *Server) ListTenantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := requestContextFrom(r.Context())
		list, err := s.tenants.List(r.Context(), rc.Principal)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenantResponses(list))
	}
}

func (s *Server) CreateTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tenants.CreateInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, err)
			return
		}
		if in.Tag != "" {
			if _, err := tenants.ParseTag(string(in.Tag)); err != nil {
				writeError(w, invalidInput(err.Error()))
				return
			}
		}

		rc := requestContextFrom(r.Context())
		t, err := s.tenants.Create(r.Context(), rc.Principal.ID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t.Response())
	}
}

func (s *Server) GetTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.tenants.Get(r.Context(), r.PathValue(pathTenantID))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Response())
	}
}

func (s *Server) UpdateTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch tenants.Patch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, err)
			return
		}
		t, err := s.tenants.Update(r.Context(), r.PathValue(pathTenantID), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Response())
	}
}

func (s *Server) DeleteTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.tenants.Delete(r.Context(), r.PathValue(pathTenantID)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type suspensionRequest struct {
	IsSuspended bool `json:"isSuspended"`
}

func (s *Server) SetTenantSuspensionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suspensionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		t, err := s.tenants.SetSuspended(r.Context(), r.PathValue(pathTenantID), req.IsSuspended)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Response())
	}
}

type createInvitationRequest struct {
	Invitee   string     `json:"invitee"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) CreateInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInvitationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		role, err := organizations.ParseTenantRole(req.Role)
		if err != nil {
			writeError(w, invalidInput(err.Error()))
			return
		}

		rc := requestContextFrom(r.Context())
		inv, err := s.invitations.Create(r.Context(), invitations.CreateInput{
			TenantID:  r.PathValue(pathTenantID),
			Invitee:   req.Invitee,
			InviterID: rc.Principal.ID,
			Role:      role,
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

func (s *Server) ListInvitationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := queryInt(r.URL.Query(), "page", 1)
		if err != nil {
			writeError(w, err)
			return
		}
		pageSize, err := queryInt(r.URL.Query(), "page_size", s.config.GetInvitationPageSize())
		if err != nil {
			writeError(w, err)
			return
		}

		items, total, err := s.invitations.List(r.Context(), r.PathValue(pathTenantID), page, pageSize)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Total-Number", strconv.Itoa(total))
		writeJSON(w, http.StatusOK, items)
	}
}

func queryInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, invalidInput(key + " must be a positive integer")
	}
	return n, nil
}

func (s *Server) RevokeInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.invitations.Revoke(r.Context(), r.PathValue(pathTenantID), r.PathValue(pathInvitationID))
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetInvitationHandler shows an invitation to its invitee and to members of
// the inviting organization. Everyone else gets the same 404 as for an
// unknown id.
func (s *Server) GetInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := s.invitations.Get(r.Context(), r.PathValue(pathInvitationID))
		if err != nil {
			writeError(w, err)
			return
		}
		rc := requestContextFrom(r.Context())
		if !s.canViewInvitation(r.Context(), rc.Principal, inv) {
			writeError(w, invitations.ErrInvitationNotFound)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func (s *Server) canViewInvitation(ctx context.Context, principal *auth.Principal, inv *invitations.Invitation) bool {
	if principal == nil {
		return false
	}
	if s.membership.Authorize(ctx, principal, inv.OrganizationID).Outcome == auth.Allowed {
		return true
	}
	user, err := s.users.FindByID(ctx, principal.ID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Err(err).Str("user_id", principal.ID).Msg("invitee lookup failed")
		}
		return false
	}
	return user.PrimaryEmail != "" && user.PrimaryEmail == inv.Invitee
}

type acceptInvitationRequest struct {
	InvitationID string `json:"invitationId"`
	Email        string `json:"email"`
}

type acceptInvitationResponse struct {
	Success  bool                     `json:"success"`
	TenantID string                   `json:"tenantId"`
	Role     organizations.TenantRole `json:"role"`
}

func (s *Server) AcceptInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req acceptInvitationRequest
		if err := decodeJSON(r, &req); err != nil {
			s.metrics.InvitationAccept(errors.CodeInvalidInput)
			writeError(w, err)
			return
		}
		if req.InvitationID == "" || req.Email == "" {
			s.metrics.InvitationAccept(errors.CodeInvalidInput)
			writeError(w, invalidInput("invitationId and email are required"))
			return
		}

		rc := requestContextFrom(r.Context())
		userID := ""
		if rc.Principal != nil {
			userID = rc.Principal.ID
		}
		res, err := s.invitations.Accept(r.Context(), req.InvitationID, req.Email, userID)
		if err != nil {
			_, code, _ := errors.Describe(err)
			s.metrics.InvitationAccept(code)
			writeError(w, err)
			return
		}
		s.metrics.InvitationAccept("success")
		log.Info().Str("invitationId", req.InvitationID).Str("tenantId", res.TenantID).Msg("invitation accepted")
		writeJSON(w, http.StatusOK, acceptInvitationResponse{Success: true, TenantID: res.TenantID, Role: res.Role})
	}
}

// organizationPath returns the addressed organization after checking that it
// is the one the guard authorized.
func organizationPath(r *http.Request) (string, error) {
	orgID := r.PathValue(pathOrganizationID)
	if requestContextFrom(r.Context()).OrganizationID != orgID {
		return "", errors.NewCoded(errors.ErrForbidden, errors.CodeForbidden, "token is bound to a different organization", 0)
	}
	return orgID, nil
}

func (s *Server) ListOrganizationMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := organizationPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		members, err := s.members.List(r.Context(), orgID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
	}
}

func (s *Server) RemoveOrganizationMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := organizationPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		rc := requestContextFrom(r.Context())
		if err := s.members.Remove(r.Context(), orgID, rc.Principal.ID, r.PathValue(pathUserID)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type updateMemberRolesRequest struct {
	Roles []string `json:"roles"`
}

type updateMemberRolesResponse struct {
	Roles []organizations.RoleID `json:"organizationRoles"`
}

func (s *Server) UpdateOrganizationMemberRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := organizationPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req updateMemberRolesRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		roles := make([]organizations.TenantRole, 0, len(req.Roles))
		for _, raw := range req.Roles {
			role, err := organizations.ParseTenantRole(raw)
			if err != nil {
				writeError(w, invalidInput(err.Error()))
				return
			}
			roles = append(roles, role)
		}

		rc := requestContextFrom(r.Context())
		updated, err := s.members.UpdateRoles(r.Context(), orgID, rc.Principal.ID, r.PathValue(pathUserID), roles)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updateMemberRolesResponse{Roles: updated})
	}
}

// ConsentHandler auto-consents first party applications and otherwise hands
// the interaction to the consent page.
func (s *Server) ConsentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := r.PathValue(pathInteractionUID)
		out, err := s.consent.Decide(r.Context(), uid)
		if err != nil {
			writeError(w, err)
			return
		}
		if out.Handled {
			http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, s.config.GetConsentPageURL()+"?uid="+url.QueryEscape(uid), http.StatusSeeOther)
	}
}

func (s *Server) ListSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := requestContextFrom(r.Context())
		list, err := s.sessions.List(r.Context(), rc.Principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type revokeSessionsResponse struct {
	Revoked int `json:"revoked"`
}

func (s *Server) RevokeSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exceptCurrent := false
		if raw := r.URL.Query().Get("except_current"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, invalidInput("except_current must be true or false"))
				return
			}
			exceptCurrent = v
		}

		rc := requestContextFrom(r.Context())
		n, err := s.sessions.Revoke(r.Context(), rc.Principal.ID, sessions.RevokeRequest{
			ExceptCurrent:    exceptCurrent,
			CurrentSessionID: rc.Principal.SessionID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, revokeSessionsResponse{Revoked: n})
	}
}
