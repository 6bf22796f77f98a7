package referral

import (
	"context"
	"errors"
	"strings"
	"time"

	"referra.org/internal/auth"
	"referra.org/internal/ids"
	"referra.org/internal/obs"
)

const (
	maxCodeRetries = 6
	maxTreeDepth   = 10
)

// Service implements the referral engine: collision-free code assignment,
// referral linkage and tree reconstruction.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source. Test use only.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// CreateInput is a pre-validated registration payload. UserID zero means
// "allocate from the sequence".
type CreateInput struct {
	UserID      int64
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	CompanyName string
	VATNumber   string
	Region      string
}

// CreateProfile inserts a new profile. A supplied referral code is resolved
// to the inviting profile; an unknown code is reported as not_found but
// never blocks registration. Referral-code uniqueness collisions are the
// expected race and retried up to maxCodeRetries; email and user_id
// conflicts are terminal and surfaced as typed errors.
func (s *Service) CreateProfile(ctx context.Context, in CreateInput, refCode string) (*Profile, ReferralStatus, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, StatusNotProvided, ErrInvalidInput
	}

	status := StatusNotProvided
	referredBy := ""
	if code := strings.ToUpper(strings.TrimSpace(refCode)); code != "" {
		parentID, err := s.store.FindIDByReferralCode(ctx, code)
		switch {
		case err == nil:
			referredBy = parentID
			status = StatusApplied
		case errors.Is(err, ErrNotFound):
			status = StatusNotFound
		default:
			return nil, status, err
		}
	}

	userID := in.UserID
	if userID == 0 {
		maxID, err := s.store.MaxUserID(ctx)
		if err != nil {
			return nil, status, err
		}
		// Best-effort max+1 counter; a concurrent registration racing to the
		// same value surfaces as ErrUserIDTaken.
		userID = maxID + 1
	}

	now := s.now().UTC()
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code, err := NewCode(codeLength)
		if err != nil {
			return nil, status, err
		}
		p := &Profile{
			ID:           ids.New(),
			UserID:       userID,
			Email:        email,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Phone:        strings.TrimSpace(in.Phone),
			CompanyName:  strings.TrimSpace(in.CompanyName),
			VATNumber:    strings.TrimSpace(in.VATNumber),
			Region:       strings.TrimSpace(in.Region),
			Role:         auth.RoleUser,
			ReferralCode: code,
			ReferredBy:   referredBy,
			DateJoined:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.Create(ctx, p); err != nil {
			if errors.Is(err, ErrCodeCollision) {
				continue
			}
			return nil, status, err
		}
		if referredBy != "" {
			// Denormalized counter on the parent; failure is logged, the
			// tree itself stays authoritative.
			if err := s.store.IncrementReferrals(ctx, referredBy); err != nil {
				obs.LogError("referral: increment parent count failed", map[string]any{
					"parent_id": referredBy, "err": err.Error(),
				})
			}
		}
		return p, status, nil
	}
	// 36^8 codes; exhausting six draws means something is deeply wrong.
	return nil, status, ErrCodeExhausted
}

// GetProfile returns one profile by id.
func (s *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	return s.store.FindByID(ctx, id)
}

// Tree reconstructs the referral tree under rootID from the flat descendant
// set and returns it with the total descendant count.
func (s *Service) Tree(ctx context.Context, rootID string) (*Node, int, error) {
	root, err := s.store.FindByID(ctx, rootID)
	if err != nil {
		return nil, 0, err
	}
	flat, err := s.store.Descendants(ctx, rootID, maxTreeDepth)
	if err != nil {
		return nil, 0, err
	}

	rootNode := &Node{Profile: *root, Children: []*Node{}}
	tree := BuildTree(rootID, flat)
	rootNode.Children = tree
	return rootNode, CountReferrals(tree), nil
}

// BuildTree assembles the id->node arena and attaches every flat entry
// under its parent; entries whose parent is the root (or is missing from
// the set) become direct children of the root.
func BuildTree(rootID string, flat []Profile) []*Node {
	nodes := make(map[string]*Node, len(flat))
	for i := range flat {
		nodes[flat[i].ID] = &Node{Profile: flat[i], Children: []*Node{}}
	}

	var tree []*Node
	for i := range flat {
		n := nodes[flat[i].ID]
		if parent, ok := nodes[flat[i].ReferredBy]; ok && flat[i].ReferredBy != rootID {
			parent.Children = append(parent.Children, n)
			continue
		}
		tree = append(tree, n)
	}
	return tree
}

// CountReferrals counts every node in the forest once, regardless of depth.
func CountReferrals(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		count++
		if len(n.Children) > 0 {
			count += CountReferrals(n.Children)
		}
	}
	return count
}

// AssignRole changes a profile's role. superAdmin is rejected outright;
// anything outside the closed role set is invalid.
func (s *Service) AssignRole(ctx context.Context, id, role string) (*Profile, error) {
	parsed, ok := auth.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}
	if !parsed.Assignable() {
		return nil, ErrRoleNotAssignable
	}
	return s.store.UpdateRole(ctx, id, parsed)
}

// MarkSigned flips the document-signature flag once. Re-signing an already
// signed profile is a no-op.
func (s *Service) MarkSigned(ctx context.Context, id string) (*Profile, error) {
	if err := s.store.MarkSigned(ctx, id, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}
