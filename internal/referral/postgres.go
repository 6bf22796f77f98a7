package referral

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"referra.org/internal/auth"
	storepg "referra.org/internal/store/pg"
)

var (
	_ Store                 = (*PGStore)(nil)
	_ auth.ProfileDirectory = (*PGStore)(nil)
)

// PGStore implements Store using PostgreSQL. It also serves as the auth
// layer's ProfileDirectory.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const profileColumns = `id, user_id, email, first_name, last_name, phone, company_name, vat_number, region,
	role, referral_code, referred_by, referrals_count, signed, signed_at, verified,
	date_joined, last_login, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p          Profile
		referredBy sql.NullString
		signedAt   sql.NullTime
		lastLogin  sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.FirstName, &p.LastName, &p.Phone,
		&p.CompanyName, &p.VATNumber, &p.Region, &p.Role, &p.ReferralCode, &referredBy,
		&p.ReferralsCount, &p.Signed, &signedAt, &p.Verified,
		&p.DateJoined, &lastLogin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if referredBy.Valid {
		p.ReferredBy = referredBy.String
	}
	if signedAt.Valid {
		p.SignedAt = &signedAt.Time
	}
	if lastLogin.Valid {
		p.LastLogin = &lastLogin.Time
	}
	return &p, nil
}

func (s *PGStore) Create(ctx context.Context, p *Profile) error {
	var referredBy any
	if p.ReferredBy != "" {
		referredBy = p.ReferredBy
	}
	_, err := s.db.ExecContext(ctx,
		`insert into profiles(id, user_id, email, first_name, last_name, phone, company_name, vat_number, region,
			role, referral_code, referred_by, date_joined, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		p.ID, p.UserID, p.Email, p.FirstName, p.LastName, p.Phone, p.CompanyName, p.VATNumber, p.Region,
		p.Role, p.ReferralCode, referredBy, p.DateJoined, p.CreatedAt, p.UpdatedAt,
	)
	if constraint, dup := storepg.UniqueConstraint(err); dup {
		switch {
		case strings.Contains(constraint, "referral_code"):
			return ErrCodeCollision
		case strings.Contains(constraint, "email"):
			return ErrEmailTaken
		case strings.Contains(constraint, "user_id"):
			return ErrUserIDTaken
		}
	}
	return err
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `select `+profileColumns+` from profiles where id=$1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *PGStore) FindIDByReferralCode(ctx context.Context, code string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `select id from profiles where referral_code=$1`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

func (s *PGStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from profiles where id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PGStore) MaxUserID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx, `select coalesce(max(user_id), 0) from profiles`).Scan(&max)
	return max, err
}

// Descendants returns the transitive referral closure under rootID in one
// bounded-depth traversal.
func (s *PGStore) Descendants(ctx context.Context, rootID string, maxDepth int) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		with recursive descendants as (
			select p.*, 1 as depth from profiles p where p.referred_by = $1
			union all
			select p.*, d.depth + 1 from profiles p
			join descendants d on p.referred_by = d.id
			where d.depth < $2
		)
		select `+profileColumns+` from descendants order by created_at asc`,
		rootID, maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

func (s *PGStore) UpdateRole(ctx context.Context, id string, role auth.Role) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`update profiles set role=$2, updated_at=now() where id=$1 returning `+profileColumns,
		id, role)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *PGStore) MarkSigned(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update profiles set signed=true, signed_at=$2, updated_at=now() where id=$1 and signed=false`,
		id, at)
	if err != nil {
		return err
	}
	if _, err := res.RowsAffected(); err != nil {
		return err
	}
	// Zero rows means missing or already signed; FindByID afterwards tells
	// the two apart.
	return nil
}

func (s *PGStore) IncrementReferrals(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update profiles set referrals_count = referrals_count + 1, updated_at=now() where id=$1`, id)
	return err
}

// ProfileDirectory ---------------------------------------------------------

func (s *PGStore) FindRefByEmail(ctx context.Context, email string) (auth.ProfileRef, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, email, role from profiles where email=$1`, email)
	var ref auth.ProfileRef
	err := row.Scan(&ref.ID, &ref.UserID, &ref.Email, &ref.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ProfileRef{}, auth.ErrNotFound
	}
	return ref, err
}

func (s *PGStore) TouchLastLogin(ctx context.Context, profileID string) error {
	_, err := s.db.ExecContext(ctx,
		`update profiles set last_login=now(), updated_at=now() where id=$1`, profileID)
	return err
}
