package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
)

// SecureToken creates a new random token
func SecureToken(options ...int) string {
	length := 32
	if len(options) > 0 {
		length = options[0]
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err.Error()) // rand should never fail
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Equal reports whether a and b are identical without leaking timing
// information about where they differ.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
