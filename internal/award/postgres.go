package award

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var _ Store = (*PGStore)(nil)

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const awardColumns = `id, title, description, points, assigned_to, assigned_by,
	redeemed, redeemed_at, paid, paid_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAward(row rowScanner) (*Award, error) {
	var (
		a          Award
		redeemedAt sql.NullTime
		paidAt     sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Points, &a.AssignedTo, &a.AssignedBy,
		&a.Redeemed, &redeemedAt, &a.Paid, &paidAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if redeemedAt.Valid {
		a.RedeemedAt = &redeemedAt.Time
	}
	if paidAt.Valid {
		a.PaidAt = &paidAt.Time
	}
	return &a, nil
}

func (s *PGStore) Create(ctx context.Context, a *Award) error {
	_, err := s.db.ExecContext(ctx,
		`insert into awards(id, title, description, points, assigned_to, assigned_by, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.Title, a.Description, a.Points, a.AssignedTo, a.AssignedBy, a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Award, error) {
	row := s.db.QueryRowContext(ctx, `select `+awardColumns+` from awards where id=$1`, id)
	a, err := scanAward(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *PGStore) ListByAssignee(ctx context.Context, profileID string) ([]Award, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+awardColumns+` from awards where assigned_to=$1 order by created_at desc`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Award
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *a)
	}
	return res, rows.Err()
}

// Redeem is a single conditional update: the where clause carries ownership
// and the not-yet-redeemed check, so concurrent redeems cannot both match.
func (s *PGStore) Redeem(ctx context.Context, id, profileID string, at time.Time) (*Award, error) {
	row := s.db.QueryRowContext(ctx,
		`update awards set redeemed=true, redeemed_at=$3, updated_at=$3
		 where id=$1 and assigned_to=$2 and redeemed=false
		 returning `+awardColumns,
		id, profileID, at)
	a, err := scanAward(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *PGStore) MarkPaid(ctx context.Context, id string, at time.Time) (*Award, error) {
	row := s.db.QueryRowContext(ctx,
		`update awards set paid=true, paid_at=$2, updated_at=$2
		 where id=$1 and paid=false
		 returning `+awardColumns,
		id, at)
	a, err := scanAward(row)
	if !errors.Is(err, sql.ErrNoRows) {
		return a, err
	}
	// Zero rows: either the award is gone or it was already paid.
	if _, ferr := s.FindByID(ctx, id); ferr != nil {
		return nil, ferr
	}
	return nil, ErrAlreadyPaid
}
