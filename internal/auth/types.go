package auth

import (
	"context"
	"time"
)

// Identity is the login credential record, distinct from the business
// Profile. Created once at registration; only last_login mutates afterwards.
type Identity struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	IsStaff      bool
	DateJoined   time.Time
	LastLogin    *time.Time
}

// Session is an audit record of one issued token. It is never consulted for
// authorization; tokens are self-verifying.
type Session struct {
	ID        string
	ProfileID string
	Token     string
	IP        string
	UserAgent string
	CreatedAt time.Time
	LogoutAt  *time.Time
}

// IdentityStore persists credential records.
type IdentityStore interface {
	Create(ctx context.Context, identity *Identity) error
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	NextID(ctx context.Context) (int64, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// SessionStore persists session audit records.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	CloseByToken(ctx context.Context, token string, at time.Time) error
}
