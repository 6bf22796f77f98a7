package bank

import (
	"context"
	"strings"
	"time"

	"referra.org/internal/ids"
	"referra.org/internal/vault"
)

type Service struct {
	store Store
	vault *vault.Vault
	now   func() time.Time
}

func NewService(store Store, v *vault.Vault) *Service {
	return &Service{store: store, vault: v, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	ProfileID  string
	HolderName string
	BankName   string
	BIC        string
	Country    string
	Currency   string
	IBAN       string
}

// Create validates and encrypts the IBAN before it ever reaches the store.
// The same IBAN written with different spacing or casing normalizes to one
// lookup hash, so the per-profile uniqueness constraint catches re-submits.
func (s *Service) Create(ctx context.Context, in CreateInput) (*View, error) {
	iban := vault.NormalizeIBAN(in.IBAN)
	if err := vault.ValidateIBAN(iban); err != nil {
		return nil, err
	}
	enc, err := s.vault.Encrypt(iban)
	if err != nil {
		return nil, err
	}
	_, last4 := vault.MaskIBAN(iban)
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "EUR"
	}
	now := s.now().UTC()
	a := &Account{
		ID:         ids.New(),
		ProfileID:  in.ProfileID,
		HolderName: strings.TrimSpace(in.HolderName),
		BankName:   strings.TrimSpace(in.BankName),
		BIC:        strings.ToUpper(strings.TrimSpace(in.BIC)),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
		Currency:   currency,
		IBANEnc:    enc,
		IBANHash:   vault.LookupHash(iban),
		IBANLast4:  last4,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return s.view(a, false)
}

// Current returns the profile's latest account. With reveal set the stored
// ciphertext is decrypted and the full IBAN returned; otherwise the masked
// form is reconstructed from the ciphertext so the two paths cannot drift.
func (s *Service) Current(ctx context.Context, profileID string, reveal bool) (*View, error) {
	a, err := s.store.Latest(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.view(a, reveal)
}

func (s *Service) view(a *Account, reveal bool) (*View, error) {
	iban, err := s.vault.Decrypt(a.IBANEnc)
	if err != nil {
		return nil, err
	}
	v := &View{
		ID:         a.ID,
		ProfileID:  a.ProfileID,
		HolderName: a.HolderName,
		BankName:   a.BankName,
		BIC:        a.BIC,
		Country:    a.Country,
		Currency:   a.Currency,
		Revealed:   reveal,
		CreatedAt:  a.CreatedAt,
	}
	if reveal {
		v.IBAN = iban
	} else {
		v.IBAN, _ = vault.MaskIBAN(iban)
	}
	return v, nil
}
