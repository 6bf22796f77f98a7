package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"referra.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/login/dashboard",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth is the bearer gate: it verifies the token, resolves the profile
// when the token carries only an email, and attaches the authenticated
// context for downstream handlers.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, r, http.StatusUnauthorized, "token expired")
			default:
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		ac := auth.Context{
			ProfileID: claims.ProfileID,
			Email:     claims.Email,
			Subject:   claims.Subject,
			Roles:     claims.Roles,
			Raw:       claims,
		}

		// Older tokens carry only the email; resolve the profile so every
		// authenticated request has a profile id.
		if ac.ProfileID == "" {
			ref, err := a.directory.FindRefByEmail(r.Context(), claims.Email)
			if err != nil {
				if errors.Is(err, auth.ErrNotFound) {
					writeError(w, r, http.StatusForbidden, "user not found or disabled")
					return
				}
				writeError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
			ac.ProfileID = ref.ID
			if len(ac.Roles) == 0 && ref.Role != "" {
				ac.Roles = []string{ref.Role}
			}
		}

		next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
	})
}

// requireRole enforces the role gate and writes the response on failure.
func requireRole(w http.ResponseWriter, r *http.Request, required ...auth.Role) (auth.Context, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Context{}, false
	}
	if !auth.HasAnyRole(required, ac.Roles) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return auth.Context{}, false
	}
	return ac, true
}

// requireAuth returns the authenticated context without a role check.
func requireAuth(w http.ResponseWriter, r *http.Request) (auth.Context, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Context{}, false
	}
	return ac, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
