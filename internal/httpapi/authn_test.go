package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"referra.org/internal/auth"
)

type stubDirectory struct {
	refs map[string]auth.ProfileRef
}

func (s *stubDirectory) FindRefByEmail(ctx context.Context, email string) (auth.ProfileRef, error) {
	ref, ok := s.refs[email]
	if !ok {
		return auth.ProfileRef{}, auth.ErrNotFound
	}
	return ref, nil
}

func (s *stubDirectory) TouchLastLogin(ctx context.Context, profileID string) error { return nil }

func newAuthTestAPI(t *testing.T) (*API, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	directory := &stubDirectory{refs: map[string]auth.ProfileRef{
		"legacy@example.com": {ID: "prof-legacy", UserID: 3, Email: "legacy@example.com", Role: "user"},
	}}
	api := New(ReadyProbe{}, "test", Deps{Tokens: tokens, Directory: directory})
	return api, tokens
}

func protectedEndpoint(t *testing.T, api *API) (http.Handler, *auth.Context) {
	t.Helper()
	captured := &auth.Context{}
	return api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatalf("expected authenticated context")
		}
		*captured = ac
		w.WriteHeader(http.StatusOK)
	})), captured
}

func TestWithAuthRejectsMissingToken(t *testing.T) {
	api, _ := newAuthTestAPI(t)
	handler, _ := protectedEndpoint(t, api)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/profiles/p1", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthRejectsBadScheme(t *testing.T) {
	api, _ := newAuthTestAPI(t)
	handler, _ := protectedEndpoint(t, api)

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/p1", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthDistinguishesExpiredToken(t *testing.T) {
	api, tokens := newAuthTestAPI(t)
	handler, _ := protectedEndpoint(t, api)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	tokens.WithClock(func() time.Time { return clock })
	raw, _, err := tokens.Issue(auth.Claims{ProfileID: "p1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock = start.Add(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/p1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "token expired") {
		t.Fatalf("expected expired message, got %s", rr.Body.String())
	}
}

func TestWithAuthAttachesContext(t *testing.T) {
	api, tokens := newAuthTestAPI(t)
	handler, captured := protectedEndpoint(t, api)

	raw, _, err := tokens.Issue(auth.Claims{ProfileID: "p1", Email: "a@example.com", Roles: auth.RoleList{"admin"}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/p1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ProfileID != "p1" || captured.Email != "a@example.com" {
		t.Fatalf("unexpected context: %+v", captured)
	}
	if len(captured.Roles) != 1 || captured.Roles[0] != "admin" {
		t.Fatalf("roles not propagated: %v", captured.Roles)
	}
}

func TestWithAuthResolvesEmailOnlyToken(t *testing.T) {
	api, tokens := newAuthTestAPI(t)
	handler, captured := protectedEndpoint(t, api)

	raw, _, err := tokens.Issue(auth.Claims{Email: "legacy@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/prof-legacy", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ProfileID != "prof-legacy" {
		t.Fatalf("profile id not resolved from email: %+v", captured)
	}
	if len(captured.Roles) != 1 || captured.Roles[0] != "user" {
		t.Fatalf("role not backfilled from directory: %v", captured.Roles)
	}
}

func TestWithAuthEmailOnlyTokenUnknownUser(t *testing.T) {
	api, tokens := newAuthTestAPI(t)
	handler, _ := protectedEndpoint(t, api)

	raw, _, err := tokens.Issue(auth.Claims{Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/p1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "user not found or disabled") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWithAuthSkipsPublicPaths(t *testing.T) {
	api, _ := newAuthTestAPI(t)
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/info", "/v1/auth/login", "/v1/auth/register"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected public path to pass, got %d", path, rr.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/awards", nil)
	req = req.WithContext(auth.WithContext(req.Context(), auth.Context{ProfileID: "p1", Roles: []string{"user"}}))

	rr := httptest.NewRecorder()
	if _, ok := requireRole(rr, req, auth.RoleAdmin, auth.RoleSuperAdmin); ok {
		t.Fatalf("expected user role to be rejected")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/awards", nil)
	req = req.WithContext(auth.WithContext(req.Context(), auth.Context{ProfileID: "p1", Roles: []string{"admin"}}))
	rr = httptest.NewRecorder()
	if _, ok := requireRole(rr, req, auth.RoleAdmin); !ok {
		t.Fatalf("expected admin role to pass")
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/awards", nil)
	rr = httptest.NewRecorder()
	if _, ok := requireRole(rr, req, auth.RoleAdmin); ok {
		t.Fatalf("expected anonymous request to be rejected")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
