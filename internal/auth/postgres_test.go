package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIdentityStoreFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	joined := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password", "first_name", "last_name", "is_active", "is_staff", "date_joined", "last_login"}).
		AddRow(int64(7), "member@example.com", "member@example.com", "pbkdf2_sha256$180000$aa$bb", "Ada", "Lovelace", true, false, joined, nil)
	mock.ExpectQuery("select id, username, email, password.*from identities where email=").
		WithArgs("member@example.com").WillReturnRows(rows)

	store := NewPGStore(db).Identities()
	identity, err := store.FindByEmail(context.Background(), "member@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if identity.ID != 7 || identity.Email != "member@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.LastLogin != nil {
		t.Fatalf("expected nil last_login")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityStoreFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, username, email, password.*from identities").
		WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db).Identities()
	if _, err := store.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityStoreCreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into identities").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"})

	store := NewPGStore(db).Identities()
	err = store.Create(context.Background(), &Identity{ID: 7, Email: "dup@example.com"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestIdentityStoreNextID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select coalesce\(max\(id\), 0\) \+ 1 from identities`).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(int64(12)))

	store := NewPGStore(db).Identities()
	next, err := store.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if next != 12 {
		t.Fatalf("expected 12, got %d", next)
	}
}

func TestSessionStoreCloseByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update sessions set logout_at").
		WithArgs("tok-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update sessions set logout_at").
		WithArgs("tok-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db).Sessions()
	if err := store.CloseByToken(context.Background(), "tok-1", time.Now()); err != nil {
		t.Fatalf("CloseByToken: %v", err)
	}
	if err := store.CloseByToken(context.Background(), "tok-1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for closed session, got %v", err)
	}
}
