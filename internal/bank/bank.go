// Package bank stores member bank accounts with the IBAN held only in
// encrypted form. The plaintext IBAN exists in memory for the duration of a
// request and is never persisted or logged.
package bank

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("bank: account not found")
	ErrDuplicateIBAN = errors.New("bank: iban already registered for profile")
)

// Account is the persisted shape: ciphertext plus a deterministic lookup
// hash, never the IBAN itself.
type Account struct {
	ID         string
	ProfileID  string
	HolderName string
	BankName   string
	BIC        string
	Country    string
	Currency   string
	IBANEnc    string
	IBANHash   string
	IBANLast4  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// View is what handlers return: the IBAN masked by default, revealed only on
// an explicit authenticated request.
type View struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	HolderName string    `json:"holderName"`
	BankName   string    `json:"bankName,omitempty"`
	BIC        string    `json:"bic,omitempty"`
	Country    string    `json:"country,omitempty"`
	Currency   string    `json:"currency"`
	IBAN       string    `json:"iban"`
	Revealed   bool      `json:"revealed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store is the persistence contract for accounts.
type Store interface {
	Create(ctx context.Context, a *Account) error
	// Latest returns the most recently created account for the profile.
	Latest(ctx context.Context, profileID string) (*Account, error)
}
