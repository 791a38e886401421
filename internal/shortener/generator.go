// Package shortener provides alias generation and link business logic.
package shortener

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// AliasLength is the fixed length of generated aliases.
const AliasLength = 7

// Generate produces a candidate alias from a cryptographically strong
// random source, encoded into the unreserved URL-safe alphabet
// (A-Z, a-z, 0-9, '-', '_') and truncated to exactly AliasLength chars.
func Generate() (string, error) {
	// Enough random bytes to cover AliasLength base64 characters.
	buf := make([]byte, AliasLength*6/8+1)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:AliasLength], nil
}
