package credentials

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("swordfish")
	require.NoError(t, err)
	require.NotEqual(t, "swordfish", hash)

	require.True(t, hasher.Verify("swordfish", hash))
	require.False(t, hasher.Verify("SWORDFISH", hash))
	require.False(t, hasher.Verify("", hash))
}

func TestHashOutputIsSalted(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("swordfish")
	require.NoError(t, err)
	second, err := hasher.Hash("swordfish")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, hasher.Verify("swordfish", first))
	require.True(t, hasher.Verify("swordfish", second))
}

func TestVerifyGarbageHash(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(bcrypt.MinCost)
	require.False(t, hasher.Verify("swordfish", "not-a-bcrypt-hash"))
}

func TestNewTempPassword(t *testing.T) {
	t.Parallel()

	first := NewTempPassword()
	second := NewTempPassword()

	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)
}
