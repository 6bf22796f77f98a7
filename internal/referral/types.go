package referral

import (
	"context"
	"errors"
	"time"

	"referra.org/internal/auth"
)

// Profile is the business identity: what members see of each other, what
// roles attach to, and the node type of the referral forest.
type Profile struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"user_id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName,omitempty"`
	LastName       string     `json:"lastName,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	CompanyName    string     `json:"companyName,omitempty"`
	VATNumber      string     `json:"vatNumber,omitempty"`
	Region         string     `json:"region,omitempty"`
	Role           auth.Role  `json:"role"`
	ReferralCode   string     `json:"referralCode,omitempty"`
	ReferredBy     string     `json:"referredBy,omitempty"`
	ReferralsCount int        `json:"referralsCount"`
	Signed         bool       `json:"signed"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	Verified       bool       `json:"verified"`
	DateJoined     time.Time  `json:"dateJoined"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Node is one entry of a reconstructed referral tree.
type Node struct {
	Profile
	Children []*Node `json:"children"`
}

// ReferralStatus reports what happened to a referral code supplied at
// registration. An unknown code never blocks registration.
type ReferralStatus string

const (
	StatusApplied     ReferralStatus = "applied"
	StatusNotFound    ReferralStatus = "not_found"
	StatusNotProvided ReferralStatus = "not_provided"
)

var (
	ErrNotFound          = errors.New("referral: profile not found")
	ErrEmailTaken        = errors.New("referral: email already registered")
	ErrUserIDTaken       = errors.New("referral: user_id already registered")
	ErrCodeCollision     = errors.New("referral: referral code collision")
	ErrCodeExhausted     = errors.New("referral: unable to generate a unique referral code")
	ErrInvalidRole       = errors.New("referral: invalid role")
	ErrRoleNotAssignable = errors.New("referral: role cannot be assigned")
	ErrInvalidInput      = errors.New("referral: invalid input")
)

// Store persists profiles. Uniqueness of email, user_id and referral_code
// is enforced by the storage layer, not application locking; Create
// translates the violated constraint into the typed errors above.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindIDByReferralCode(ctx context.Context, code string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
	MaxUserID(ctx context.Context) (int64, error)
	Descendants(ctx context.Context, rootID string, maxDepth int) ([]Profile, error)
	UpdateRole(ctx context.Context, id string, role auth.Role) (*Profile, error)
	MarkSigned(ctx context.Context, id string, at time.Time) error
	IncrementReferrals(ctx context.Context, id string) error
}
