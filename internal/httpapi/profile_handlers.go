package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"referra.org/internal/audit"
	"referra.org/internal/auth"
	"referra.org/internal/referral"
)

type assignRoleRequest struct {
	Role string `json:"role"`
}

type referralsResponse struct {
	Tree  []*referral.Node `json:"tree"`
	Count int              `json:"count"`
}

func (a *API) handleProfileResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/profiles/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "self/sign" {
		a.signProfile(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/referrals"); ok && !strings.Contains(id, "/") {
		a.getReferrals(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/role"); ok && !strings.Contains(id, "/") {
		a.assignRole(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProfile(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

// canAccessProfile: members see their own profile, staff see all.
func canAccessProfile(ac auth.Context, profileID string) bool {
	if ac.ProfileID == profileID {
		return true
	}
	return auth.HasAnyRole([]auth.Role{auth.RoleAdmin, auth.RoleSuperAdmin}, ac.Roles)
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request, id string) {
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}
	if !canAccessProfile(ac, id) {
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	profile, err := a.referrals.GetProfile(r.Context(), id)
	if err != nil {
		handleReferralError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) getReferrals(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}
	if !canAccessProfile(ac, id) {
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	root, count, err := a.referrals.Tree(r.Context(), id)
	if err != nil {
		handleReferralError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referralsResponse{
		Tree:  root.Children,
		Count: count,
	})
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	ac, ok := requireRole(w, r, auth.RoleAdmin, auth.RoleSuperAdmin)
	if !ok {
		return
	}

	var req assignRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.referrals.AssignRole(r.Context(), id, strings.TrimSpace(req.Role))
	if err != nil {
		handleReferralError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "profile.role.assigned", map[string]any{
		"profile_id":  id,
		"role":        string(profile.Role),
		"assigned_by": ac.ProfileID,
	})
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) signProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}

	profile, err := a.referrals.MarkSigned(r.Context(), ac.ProfileID)
	if err != nil {
		handleReferralError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "profile.signed", map[string]any{
		"profile_id": profile.ID,
	})
	writeJSON(w, http.StatusOK, profile)
}

func handleReferralError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, referral.ErrInvalidInput),
		errors.Is(err, referral.ErrInvalidRole),
		errors.Is(err, referral.ErrRoleNotAssignable):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, referral.ErrEmailTaken),
		errors.Is(err, referral.ErrUserIDTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, referral.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "profile not found")
	case errors.Is(err, referral.ErrCodeExhausted):
		writeError(w, r, http.StatusInternalServerError, "referral code generation failed")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
