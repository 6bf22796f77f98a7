package award

import (
	"context"
	"strings"
	"time"

	"referra.org/internal/ids"
)

// ProfileChecker is the thin slice of the profile store the ledger needs to
// validate recipients.
type ProfileChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	store    Store
	profiles ProfileChecker
	now      func() time.Time
}

func NewService(store Store, profiles ProfileChecker) *Service {
	return &Service{store: store, profiles: profiles, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	Title       string
	Description string
	Points      int64
	AssignedTo  string
	AssignedBy  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Award, error) {
	if in.Points < 0 {
		return nil, ErrInvalidPoints
	}
	ok, err := s.profiles.Exists(ctx, in.AssignedTo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoRecipient
	}
	now := s.now().UTC()
	a := &Award{
		ID:          ids.New(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Points:      in.Points,
		AssignedTo:  in.AssignedTo,
		AssignedBy:  in.AssignedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Redeem flips the award to redeemed on behalf of profileID. An award that is
// missing, owned by someone else, or already redeemed reads the same from the
// caller's side: ErrNotFound.
func (s *Service) Redeem(ctx context.Context, id, profileID string) (*Award, error) {
	return s.store.Redeem(ctx, id, profileID, s.now().UTC())
}

// MarkPaid settles the award once. A second settlement attempt fails with
// ErrAlreadyPaid rather than ErrNotFound so operators can tell a double-pay
// from a bad id.
func (s *Service) MarkPaid(ctx context.Context, id string) (*Award, error) {
	return s.store.MarkPaid(ctx, id, s.now().UTC())
}

func (s *Service) Get(ctx context.Context, id string) (*Award, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) ListFor(ctx context.Context, profileID string) ([]Award, error) {
	return s.store.ListByAssignee(ctx, profileID)
}
