package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordScheme  = "pbkdf2_sha256"
	hashIterations  = 180000
	saltBytes       = 16
	derivedKeyBytes = 32
)

// HashPassword derives a salted PBKDF2-SHA256 key and encodes it as
// "pbkdf2_sha256$<iterations>$<salt_hex>$<key_hex>".
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is empty")
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, hashIterations, derivedKeyBytes, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		passwordScheme, hashIterations, hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// VerifyPassword checks plain against a stored hash record. It fails closed:
// a malformed record yields false, never an error. The derived key is
// compared in constant time.
func VerifyPassword(plain, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 || parts[0] != passwordScheme {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(plain), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}
