package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"referra.org/internal/audit"
	"referra.org/internal/auth"
	"referra.org/internal/referral"
)

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	CompanyName  string `json:"companyName"`
	VATNumber    string `json:"vatNumber"`
	Region       string `json:"region"`
	ReferralCode string `json:"referralCode"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type sessionResponse struct {
	Token          string            `json:"token"`
	ExpiresAt      time.Time         `json:"expiresAt"`
	Profile        *referral.Profile `json:"profile"`
	ReferralStatus string            `json:"referralStatus,omitempty"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "valid email is required")
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}

	profile, status, err := a.referrals.CreateProfile(r.Context(), referral.CreateInput{
		Email:       email,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Phone:       strings.TrimSpace(req.Phone),
		CompanyName: strings.TrimSpace(req.CompanyName),
		VATNumber:   strings.TrimSpace(req.VATNumber),
		Region:      strings.TrimSpace(req.Region),
	}, strings.TrimSpace(req.ReferralCode))
	if err != nil {
		handleReferralError(w, r, err)
		return
	}

	identity, err := a.auth.RegisterIdentity(r.Context(), email, profile.FirstName, profile.LastName, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	token, expiresAt, err := a.auth.IssueFor(identity.ID, auth.ProfileRef{
		ID:     profile.ID,
		UserID: profile.UserID,
		Email:  profile.Email,
		Role:   string(profile.Role),
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	a.auth.RecordSession(r.Context(), profile.ID, token, clientIP(r), r.UserAgent())

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"profile_id":      profile.ID,
		"email":           email,
		"referral_status": string(status),
	})

	w.Header().Set("Location", "/v1/profiles/"+profile.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:          token,
		ExpiresAt:      expiresAt,
		Profile:        profile,
		ReferralStatus: string(status),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	a.login(w, r)
}

// handleDashboardLogin accepts only operator accounts. Credentials are
// verified before the role check so the response does not reveal whether an
// email belongs to an operator.
func (a *API) handleDashboardLogin(w http.ResponseWriter, r *http.Request) {
	a.login(w, r, auth.RoleAdmin, auth.RoleSuperAdmin)
}

func (a *API) login(w http.ResponseWriter, r *http.Request, required ...auth.Role) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.auth.Login(r.Context(), auth.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
		RememberMe: req.RememberMe,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	profile, err := a.referrals.GetProfile(r.Context(), result.Profile.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	if len(required) > 0 && !auth.HasAnyRole(required, []string{string(profile.Role)}) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"profile_id": profile.ID,
		"email":      profile.Email,
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Profile:   profile,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := requireAuth(w, r); !ok {
		return
	}

	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	// Logout is idempotent: a token without an open session is fine.
	if err := a.auth.Logout(r.Context(), token); err != nil && !errors.Is(err, auth.ErrNotFound) {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "account disabled")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
