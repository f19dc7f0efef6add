package domain

import (
	"errors"
	"fmt"
	"strings"
)

// HashLength is the number of hex characters in a transaction hash.
const HashLength = 64

var ErrInvalidHash = errors.New("invalid transaction hash")

// TransactionHash is a validated transaction id, normalized to lowercase.
type TransactionHash string

// IsValidHash reports whether s, once trimmed, is exactly 64 hex characters.
func IsValidHash(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != HashLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func ParseHash(s string) (TransactionHash, error) {
	trimmed := strings.TrimSpace(s)
	if !IsValidHash(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, truncate(trimmed, 20))
	}
	return TransactionHash(strings.ToLower(trimmed)), nil
}

func (h TransactionHash) String() string {
	return string(h)
}

// Short is the 16-character form used in terse log lines.
func (h TransactionHash) Short() string {
	if len(h) <= 16 {
		return string(h)
	}
	return string(h[:16]) + "..."
}

// Matches compares against a stored hash without regard to letter case.
func (h TransactionHash) Matches(stored string) bool {
	return strings.EqualFold(string(h), strings.TrimSpace(stored))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
