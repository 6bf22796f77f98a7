package auth

import "context"

// Context is the authenticated request context attached once the bearer
// gate accepts a token. It is the sole input to downstream role checks.
type Context struct {
	ProfileID string
	Email     string
	Subject   string
	Roles     []string
	Raw       *Claims
}

type authContextKey struct{}

// WithContext attaches the authenticated context to ctx.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, authContextKey{}, &ac)
}

// FromContext extracts the authenticated context, if any.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	v, ok := ctx.Value(authContextKey{}).(*Context)
	if !ok || v == nil {
		return Context{}, false
	}
	return *v, true
}

// ProfileRef is the minimal slice of a profile the auth layer needs: enough
// to mint token claims and resolve the email-fallback lookup.
type ProfileRef struct {
	ID     string
	UserID int64
	Email  string
	Role   string
}

// ProfileDirectory resolves profiles for login and for tokens that carry an
// email but no profile id. Implemented by the referral store.
type ProfileDirectory interface {
	FindRefByEmail(ctx context.Context, email string) (ProfileRef, error)
	TouchLastLogin(ctx context.Context, profileID string) error
}
