package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"referra.org/internal/ids"
	"referra.org/internal/obs"
)

// Service implements the authentication flow: credential verification,
// token issuance and session bookkeeping.
type Service struct {
	identities IdentityStore
	sessions   SessionStore
	profiles   ProfileDirectory
	tokens     *Tokens
	now        func() time.Time
}

func NewService(identities IdentityStore, sessions SessionStore, profiles ProfileDirectory, tokens *Tokens) *Service {
	return &Service{
		identities: identities,
		sessions:   sessions,
		profiles:   profiles,
		tokens:     tokens,
		now:        time.Now,
	}
}

// LoginInput is a pre-validated login request.
type LoginInput struct {
	Email      string
	Password   string
	IP         string
	UserAgent  string
	RememberMe bool
}

// LoginResult carries the issued token and the resolved profile reference.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Profile   ProfileRef
	Identity  *Identity
}

// Login verifies credentials and issues a token. Any credential failure
// collapses to ErrUnauthorized so the response does not reveal whether the
// email exists. The session record and last-login stamps are secondary
// writes: their failure is logged and never fails the login.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return LoginResult{}, ErrUnauthorized
	}

	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrUnauthorized
		}
		return LoginResult{}, err
	}
	if !VerifyPassword(in.Password, identity.PasswordHash) {
		return LoginResult{}, ErrUnauthorized
	}
	if !identity.IsActive {
		return LoginResult{}, ErrAccountDisabled
	}

	ref, err := s.profiles.FindRefByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, fmt.Errorf("identity %d has no profile", identity.ID)
		}
		return LoginResult{}, err
	}

	claims := Claims{
		ProfileID:  ref.ID,
		Email:      email,
		UID:        ref.UserID,
		Roles:      RoleList{ref.Role},
		RememberMe: in.RememberMe,
	}
	claims.Subject = strconv.FormatInt(identity.ID, 10)
	token, expiresAt, err := s.tokens.Issue(claims)
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now().UTC()
	s.RecordSession(ctx, ref.ID, token, in.IP, in.UserAgent)
	if err := s.identities.TouchLastLogin(ctx, identity.ID, now); err != nil {
		obs.LogError("login: touch identity last_login failed", map[string]any{"identity_id": identity.ID, "err": err.Error()})
	}
	if err := s.profiles.TouchLastLogin(ctx, ref.ID); err != nil {
		obs.LogError("login: touch profile last_login failed", map[string]any{"profile_id": ref.ID, "err": err.Error()})
	}
	identity.LastLogin = &now

	return LoginResult{Token: token, ExpiresAt: expiresAt, Profile: ref, Identity: identity}, nil
}

// RegisterIdentity creates the credential record for a freshly created
// profile. The numeric id is a best-effort max+1 counter; a concurrent
// collision surfaces as ErrConflict.
func (s *Service) RegisterIdentity(ctx context.Context, email, firstName, lastName, password string) (*Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	nextID, err := s.identities.NextID(ctx)
	if err != nil {
		return nil, err
	}
	identity := &Identity{
		ID:           nextID,
		Username:     email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
		DateJoined:   s.now().UTC(),
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// RecordSession persists a session audit record. Failures are logged and
// swallowed: the session log is a trace, not a gate.
func (s *Service) RecordSession(ctx context.Context, profileID, token, ip, userAgent string) {
	err := s.sessions.Create(ctx, &Session{
		ID:        ids.New(),
		ProfileID: profileID,
		Token:     token,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		obs.LogError("session create failed", map[string]any{"profile_id": profileID, "err": err.Error()})
	}
}

// Logout stamps logout_at on the session holding the presented token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.CloseByToken(ctx, token, s.now().UTC())
}

// IssueFor mints a token for a known profile, used right after
// registration so a new member is signed in immediately.
func (s *Service) IssueFor(identityID int64, ref ProfileRef) (string, time.Time, error) {
	claims := Claims{
		ProfileID: ref.ID,
		Email:     ref.Email,
		UID:       ref.UserID,
		Roles:     RoleList{ref.Role},
	}
	claims.Subject = strconv.FormatInt(identityID, 10)
	return s.tokens.Issue(claims)
}
