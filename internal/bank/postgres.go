package bank

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	storepg "referra.org/internal/store/pg"
)

var _ Store = (*PGStore)(nil)

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx,
		`insert into bank_accounts(id, profile_id, holder_name, bank_name, bic, country, currency, iban_enc, iban_hash, iban_last4, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.ProfileID, a.HolderName, a.BankName, a.BIC, a.Country, a.Currency,
		a.IBANEnc, a.IBANHash, a.IBANLast4, a.CreatedAt, a.UpdatedAt)
	if constraint, dup := storepg.UniqueConstraint(err); dup && strings.Contains(constraint, "iban_hash") {
		return ErrDuplicateIBAN
	}
	return err
}

func (s *PGStore) Latest(ctx context.Context, profileID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, profile_id, holder_name, bank_name, bic, country, currency, iban_enc, iban_hash, iban_last4, created_at, updated_at
		 from bank_accounts where profile_id=$1 order by created_at desc limit 1`, profileID)
	var a Account
	err := row.Scan(&a.ID, &a.ProfileID, &a.HolderName, &a.BankName, &a.BIC, &a.Country, &a.Currency,
		&a.IBANEnc, &a.IBANHash, &a.IBANLast4, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
