package util

import (
	"crypto/rand"
	"fmt"
)

// Codes avoid lookalike characters (0/O, 1/I) so they survive being read
// aloud or copied from a phone screen.
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomCode generates a fixed-length uppercase alphanumeric code suitable
// for one-time invites.
func RandomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("util: failed to read random bytes: %w", err)
	}
	for i := range b {
		b[i] = codeCharset[int(b[i])%len(codeCharset)]
	}
	return string(b), nil
}
