package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"password", "correct horse battery staple", "ünïcødé", " padded "} {
		hash, err := HashPassword(p, bcrypt.MinCost)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.True(t, VerifyPassword(hash, p), "password %q", p)
		assert.False(t, VerifyPassword(hash, p+"x"), "password %q", p)
	}
}

func TestHashPassword_SaltIsUnique(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, VerifyPassword(a, "same-password"))
	assert.True(t, VerifyPassword(b, "same-password"))
}

func TestHashPassword_OutOfRangeCostUsesDefault(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func TestHashPassword_TooLongFails(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
	require.Error(t, err)
	assert.Empty(t, hash)
}

func TestVerifyPassword_GarbageHash(t *testing.T) {
	t.Parallel()

	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "pw"))
	assert.False(t, VerifyPassword("", ""))
}
