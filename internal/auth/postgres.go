package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	storepg "referra.org/internal/store/pg"
)

// PGStore exposes the PostgreSQL-backed identity and session stores.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Identities() IdentityStore { return &identityStore{db: s.db} }
func (s *PGStore) Sessions() SessionStore    { return &sessionStore{db: s.db} }

// Identity store -----------------------------------------------------------

type identityStore struct{ db *sql.DB }

func (s *identityStore) Create(ctx context.Context, identity *Identity) error {
	_, err := s.db.ExecContext(ctx,
		`insert into identities(id, username, email, password, first_name, last_name, is_active, is_staff, date_joined)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		identity.ID, identity.Username, identity.Email, identity.PasswordHash,
		identity.FirstName, identity.LastName, identity.IsActive, identity.IsStaff, identity.DateJoined,
	)
	if _, dup := storepg.UniqueConstraint(err); dup {
		return ErrConflict
	}
	return err
}

func (s *identityStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, username, email, password, first_name, last_name, is_active, is_staff, date_joined, last_login
		 from identities where email=$1`, email)
	var (
		identity  Identity
		lastLogin sql.NullTime
	)
	err := row.Scan(&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash,
		&identity.FirstName, &identity.LastName, &identity.IsActive, &identity.IsStaff,
		&identity.DateJoined, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		identity.LastLogin = &lastLogin.Time
	}
	return &identity, nil
}

// NextID allocates the next numeric identity id as max+1. Best effort: a
// concurrent registration can race and collide, which surfaces as a unique
// violation on insert.
func (s *identityStore) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `select coalesce(max(id), 0) + 1 from identities`).Scan(&next)
	return next, err
}

func (s *identityStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `update identities set last_login=$2 where id=$1`, id, at)
	return err
}

// Session store ------------------------------------------------------------

type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Create(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, profile_id, token, last_authorized_ip, user_agent, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		session.ID, session.ProfileID, session.Token, session.IP, session.UserAgent, session.CreatedAt,
	)
	return err
}

func (s *sessionStore) CloseByToken(ctx context.Context, token string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update sessions set logout_at=$2 where token=$1 and logout_at is null`, token, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
