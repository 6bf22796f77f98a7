package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "referra"

// DefaultTokenTTL is the access-token lifetime handed out at login.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims carried by an access token. ProfileID is the claim downstream
// authorization keys on; Email doubles as a recovery path for tokens minted
// before profile ids were embedded.
type Claims struct {
	ProfileID  string   `json:"profileId,omitempty"`
	Email      string   `json:"email,omitempty"`
	UID        int64    `json:"uid,omitempty"`
	Roles      RoleList `json:"role,omitempty"`
	RememberMe bool     `json:"rememberMe,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies access tokens with a process-wide HS256 secret
// supplied once at startup.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds the token service. An empty secret is a configuration
// error, not a per-call condition.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the time source. Test use only.
func (t *Tokens) WithClock(fn func() time.Time) *Tokens {
	if fn != nil {
		t.now = fn
	}
	return t
}

// TTL returns the configured token lifetime.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs the claims. Identity fields come from the caller; issuer,
// issued-at, expiry and jti are filled in here.
func (t *Tokens) Issue(claims Claims) (string, time.Time, error) {
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	claims.Email = strings.TrimSpace(strings.ToLower(claims.Email))
	claims.Issuer = issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token. Expiry is reported as ErrTokenExpired
// and every other failure as ErrInvalidToken; callers surface different
// messages for the two. A token carrying neither a profile id nor an email
// is invalid even when the signature checks out.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims.Email = strings.TrimSpace(strings.ToLower(claims.Email))
	if claims.ProfileID == "" && claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
