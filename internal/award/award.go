// Package award keeps the points ledger: grants issued by staff, redeemed
// once by their recipient, and settled (paid out) once by staff.
package award

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("award: not found")
	ErrAlreadyPaid   = errors.New("award: already paid")
	ErrInvalidPoints = errors.New("award: points must be non-negative")
	ErrNoRecipient   = errors.New("award: recipient profile not found")
)

// Award is one grant of points. Redeemed and Paid advance independently and
// each flips at most once.
type Award struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Points      int64      `json:"points"`
	AssignedTo  string     `json:"assignedTo"`
	AssignedBy  string     `json:"assignedBy"`
	Redeemed    bool       `json:"redeemed"`
	RedeemedAt  *time.Time `json:"redeemedAt,omitempty"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Store is the persistence contract for awards.
type Store interface {
	Create(ctx context.Context, a *Award) error
	FindByID(ctx context.Context, id string) (*Award, error)
	ListByAssignee(ctx context.Context, profileID string) ([]Award, error)
	// Redeem flips redeemed for the award only when it belongs to profileID
	// and has not been redeemed yet. The conditional write is the concurrency
	// guard: concurrent redeems race on one row update and at most one wins.
	Redeem(ctx context.Context, id, profileID string, at time.Time) (*Award, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (*Award, error)
}
