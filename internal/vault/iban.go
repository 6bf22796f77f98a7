package vault

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidIBAN covers structural and checksum failures. Validation always
// precedes any cryptographic work.
var ErrInvalidIBAN = errors.New("vault: invalid iban")

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{13,32}$`)

// NormalizeIBAN strips whitespace and uppercases.
func NormalizeIBAN(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// ValidateIBAN checks the normalized IBAN structurally and against the
// ISO 7064 mod-97-10 checksum.
func ValidateIBAN(normalized string) error {
	if !ibanPattern.MatchString(normalized) {
		return ErrInvalidIBAN
	}
	if mod97(normalized[4:]+normalized[:4]) != 1 {
		return ErrInvalidIBAN
	}
	return nil
}

// mod97 computes the remainder of the rearranged, letter-expanded IBAN
// string incrementally, so arbitrary lengths never overflow.
func mod97(s string) int {
	rem := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			rem = (rem*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			n := int(r-'A') + 10
			rem = (rem*100 + n) % 97
		default:
			return 0
		}
	}
	return rem
}

// MaskIBAN renders the unauthorized view: first four and last four
// characters kept, the middle replaced by a fixed-width mask, grouped in
// 4-character blocks.
func MaskIBAN(iban string) (masked, last4 string) {
	clean := NormalizeIBAN(iban)
	if len(clean) <= 8 {
		return group4(clean), tail4(clean)
	}
	head := clean[:4]
	tail := clean[len(clean)-4:]
	body := strings.Repeat("*", len(clean)-8)
	return group4(head + body + tail), tail
}

func group4(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}

func tail4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
