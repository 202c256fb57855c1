package helpers

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes; newer library versions reject
// longer input outright, so truncate up front. Effective password entropy is
// capped at 72 bytes — an accepted limitation of the algorithm, not something
// to work around here.
const maxPasswordBytes = 72

const tempPasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	h, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares a bcrypt hash with a plain password. A malformed
// stored hash yields false, never an error.
func CheckPassword(hash string, plain string) bool {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}

// GenerateTempPassword returns a random password of n characters drawn from
// letters, digits, and punctuation. Used to give OTP-first accounts a usable
// password credential.
func GenerateTempPassword(n int) (string, error) {
	if n <= 0 {
		n = 12
	}
	out := make([]byte, n)
	max := big.NewInt(int64(len(tempPasswordCharset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordCharset[idx.Int64()]
	}
	return string(out), nil
}
