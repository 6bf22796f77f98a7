package award

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func awardRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "points", "assigned_to", "assigned_by",
		"redeemed", "redeemed_at", "paid", "paid_at", "created_at", "updated_at",
	})
}

func TestPGStoreRedeemConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("update awards set redeemed=true").
		WithArgs("aw-1", "prof-1", now).
		WillReturnRows(awardRows().
			AddRow("aw-1", "t", "", int64(10), "prof-1", "admin-1", true, now, false, nil, now, now))

	store := NewPGStore(db)
	a, err := store.Redeem(context.Background(), "aw-1", "prof-1", now)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !a.Redeemed || a.RedeemedAt == nil {
		t.Fatalf("expected redeemed award, got %+v", a)
	}
}

func TestPGStoreRedeemNoMatchingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("update awards set redeemed=true").
		WithArgs("aw-1", "prof-2", sqlmock.AnyArg()).
		WillReturnRows(awardRows())

	store := NewPGStore(db)
	if _, err := store.Redeem(context.Background(), "aw-1", "prof-2", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreMarkPaidDistinguishesAlreadyPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	// Conditional update misses, but the row exists: already paid.
	mock.ExpectQuery("update awards set paid=true").
		WithArgs("aw-1", sqlmock.AnyArg()).WillReturnRows(awardRows())
	mock.ExpectQuery("select .* from awards where id=").
		WithArgs("aw-1").
		WillReturnRows(awardRows().
			AddRow("aw-1", "t", "", int64(10), "prof-1", "admin-1", false, nil, true, now, now, now))

	store := NewPGStore(db)
	if _, err := store.MarkPaid(context.Background(), "aw-1", time.Now()); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	// Conditional update misses and the row is gone: not found.
	mock.ExpectQuery("update awards set paid=true").
		WithArgs("aw-2", sqlmock.AnyArg()).WillReturnRows(awardRows())
	mock.ExpectQuery("select .* from awards where id=").
		WithArgs("aw-2").WillReturnRows(awardRows())

	if _, err := store.MarkPaid(context.Background(), "aw-2", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
