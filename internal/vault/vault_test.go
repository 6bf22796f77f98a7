package vault

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(testKey)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(t)

	payload, err := v.Encrypt("IT60X0542811101000000123456")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		t.Fatalf("expected nonce:ciphertext:tag, got %q", payload)
	}
	if len(parts[0]) != 24 || len(parts[2]) != 32 {
		t.Fatalf("unexpected segment lengths: %d/%d", len(parts[0]), len(parts[2]))
	}

	plain, err := v.Decrypt(payload)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "IT60X0542811101000000123456" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := v.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct payloads for repeated plaintext")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	v := newTestVault(t)

	payload, err := v.Encrypt("IT60X0542811101000000123456")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	flip := func(s string, i int) string {
		c := byte('0')
		if s[i] == '0' {
			c = '1'
		}
		return s[:i] + string(c) + s[i+1:]
	}

	parts := strings.Split(payload, ":")
	tamperedCT := parts[0] + ":" + flip(parts[1], 2) + ":" + parts[2]
	if _, err := v.Decrypt(tamperedCT); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("tampered ciphertext: expected ErrAuthFailed, got %v", err)
	}
	tamperedTag := parts[0] + ":" + parts[1] + ":" + flip(parts[2], 2)
	if _, err := v.Decrypt(tamperedTag); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("tampered tag: expected ErrAuthFailed, got %v", err)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	v := newTestVault(t)
	other, err := New(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload, err := v.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := other.Decrypt(payload); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestDecryptRejectsMalformedPayloads(t *testing.T) {
	v := newTestVault(t)

	cases := []string{
		"",
		"abc",
		"aa:bb",
		"aa:bb:cc:dd",
		"zz:bb:cc",
		"0001020304050607080910ff:zz:" + strings.Repeat("aa", 16),
		"0001020304050607080910ff:bbbb:aa",
	}
	for _, payload := range cases {
		if _, err := v.Decrypt(payload); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%q: expected ErrInvalidPayload, got %v", payload, err)
		}
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "abcd", strings.Repeat("ab", 31), strings.Repeat("zz", 32)} {
		if _, err := New(key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("%q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestLookupHashIsDeterministic(t *testing.T) {
	a := LookupHash("IT60X0542811101000000123456")
	b := LookupHash(NormalizeIBAN("it60 x054 2811 1010 0000 0123 456"))
	if a != b {
		t.Fatalf("normalized spellings must hash identically")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(a))
	}
	if LookupHash("other") == a {
		t.Fatalf("distinct inputs must not collide")
	}
}
