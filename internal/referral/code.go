package referral

import (
	"crypto/rand"
	"fmt"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// NewCode draws a referral code from the A-Z0-9 alphabet using a
// cryptographically strong source. 256 mod 36 != 0, so the first four
// alphabet characters are favored by roughly 0.4% per position; the code is
// public and non-secret, so the bias is accepted rather than rejected away.
func NewCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("referral: code length must be positive, got %d", length)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("referral: code entropy: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
