// Package vault provides authenticated encryption for the single sensitive
// field this system stores (the IBAN), plus the deterministic digest used
// for equality lookups over the encrypted value.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	keyBytes   = 32
	nonceBytes = 12
	tagBytes   = 16
)

var (
	// ErrInvalidKey means the configured secret is not 64 hex characters.
	// This is a startup condition, never a per-call one.
	ErrInvalidKey = errors.New("vault: key must be 32 bytes (64 hex chars)")
	// ErrInvalidPayload means the ciphertext does not parse as
	// nonce:ciphertext:tag hex segments.
	ErrInvalidPayload = errors.New("vault: invalid payload format")
	// ErrAuthFailed means tag verification failed: the payload was tampered
	// with or encrypted under a different key.
	ErrAuthFailed = errors.New("vault: authentication failed")
)

// Vault holds the process-wide AES-256-GCM key, initialized exactly once at
// startup and read-only thereafter.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a 64-hex-char secret.
func New(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != keyBytes {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh 96-bit nonce and encodes the result
// as "nonceHex:ciphertextHex:tagHex".
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	// Seal appends the 16-byte tag to the ciphertext; the payload encoding
	// keeps the two as separate segments.
	ct := sealed[:len(sealed)-tagBytes]
	tag := sealed[len(sealed)-tagBytes:]
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ct) + ":" + hex.EncodeToString(tag), nil
}

// Decrypt opens a payload produced by Encrypt. It never returns corrupted
// plaintext: a malformed payload yields ErrInvalidPayload, a failed tag
// check yields ErrAuthFailed.
func (v *Vault) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return "", ErrInvalidPayload
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceBytes {
		return "", ErrInvalidPayload
	}
	ct, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidPayload
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagBytes {
		return "", ErrInvalidPayload
	}
	plaintext, err := v.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrAuthFailed
	}
	return string(plaintext), nil
}

// LookupHash is the deterministic one-way digest stored next to the
// ciphertext for uniqueness and equality lookups. Callers normalize the
// input first so equivalent spellings hash identically.
func LookupHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
