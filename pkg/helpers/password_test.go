package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}

func TestHashPasswordTruncatesAtByteCap(t *testing.T) {
	// bcrypt only looks at the first 72 bytes; anything beyond is ignored.
	long := strings.Repeat("a", 80)
	hash, err := HashPassword(long)
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, long))
	assert.True(t, CheckPassword(hash, strings.Repeat("a", 72)))
	assert.False(t, CheckPassword(hash, strings.Repeat("a", 71)))
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	assert.False(t, CheckPassword("not-a-bcrypt-hash", "anything"))
	assert.False(t, CheckPassword("", "anything"))
}

func TestGenerateTempPassword(t *testing.T) {
	p, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.Len(t, p, 12)
	for _, r := range p {
		assert.Contains(t, tempPasswordCharset, string(r))
	}

	q, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.NotEqual(t, p, q)

	// non-positive length falls back to the default
	d, err := GenerateTempPassword(0)
	require.NoError(t, err)
	assert.Len(t, d, 12)
}
