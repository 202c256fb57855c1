package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// NewToken returns n random bytes as a URL-safe base64 string.
// Session tokens and reset tickets use n=32.
func NewToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
