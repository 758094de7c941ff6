package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SessionTokenBytes is the number of random bytes in a session token.
// Tokens are hex encoded, so the string form is twice this length.
const SessionTokenBytes = 32

// GenerateSessionToken generates a random session token.
// Format: 64 lowercase hex characters.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
