package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Opaque token sizes in random bytes, before hex encoding.
const (
	RefreshTokenBytes      = 40
	VerificationTokenBytes = 32
	ResetTokenBytes        = 32
)

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
