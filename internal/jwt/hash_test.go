package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashRefreshToken(t *testing.T) {
	digest := HashRefreshToken("some-refresh-token")
	require.Len(t, digest, 64)
	require.NotEqual(t, "some-refresh-token", digest)

	// Deterministic: the stored digest must match a later recomputation.
	require.Equal(t, digest, HashRefreshToken("some-refresh-token"))
	require.NotEqual(t, digest, HashRefreshToken("some-other-token"))
}

func TestHashEquals(t *testing.T) {
	digest := HashRefreshToken("token")

	require.True(t, HashEquals(digest, HashRefreshToken("token")))
	require.False(t, HashEquals(digest, HashRefreshToken("other")))
	require.False(t, HashEquals(digest, digest[:32]))
	require.False(t, HashEquals("", digest))
	require.True(t, HashEquals("", ""))
}
