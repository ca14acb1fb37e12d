package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureToken(t *testing.T) {
	secureToken := SecureToken()

	raw, err := base64.RawURLEncoding.DecodeString(secureToken)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	assert.NotEqual(t, secureToken, SecureToken())

	raw, err = base64.RawURLEncoding.DecodeString(SecureToken(16))
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("abc", "abcd"))
	assert.False(t, Equal("", "a"))
}
