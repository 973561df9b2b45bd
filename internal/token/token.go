// internal/token/token.go
//
// Confirmation-token issuer.
//
// Context
// -------
// A confirmation link carries one opaque token in its query string.  The
// token is the only credential needed to confirm a subscriber, so it is
// drawn from crypto/rand:
//
//	25 characters × log2(62) ≈ 148 bits
//
// Characters come from [A-Za-z0-9] so the token is URL-safe without
// escaping.  Bytes ≥ 248 are rejected to keep the alphabet uniform.
//
// Notes
// -----
//   - No uniqueness check happens here.  The store's primary key rejects a
//     collision instead of overwriting.
//   - A failing entropy source is a fatal process condition, so Issue
//     panics rather than returning an error.
package token

import (
	"crypto/rand"
	"fmt"
)

const (
	// Length is the number of characters in every issued token.
	Length = 25

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// maxUnbiased is the largest multiple of len(alphabet) that fits a byte.
	maxUnbiased = 256 - 256%len(alphabet)
)

// Issue returns a fresh token.
func Issue() string {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length*2)
	for len(out) < Length {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("token: entropy source failed: %v", err))
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == Length {
				break
			}
		}
	}
	return string(out)
}

// WellFormed reports whether s could have been produced by Issue.  It lets
// callers skip a store round trip for obvious garbage.
func WellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
