package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNonce(t *testing.T) {
	a := NewNonce(32)
	b := NewNonce(32)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a, b)
}

func TestDeriveKeys(t *testing.T) {
	clientNonce := []byte("client-nonce-0123456789abcdef000")
	serverNonce := []byte("server-nonce-0123456789abcdef000")

	t.Run("deterministic", func(t *testing.T) {
		keys1, err := DeriveKeys(clientNonce, serverNonce)
		require.NoError(t, err)
		keys2, err := DeriveKeys(clientNonce, serverNonce)
		require.NoError(t, err)

		assert.Equal(t, keys1, keys2)
	})

	t.Run("directional keys differ", func(t *testing.T) {
		keys, err := DeriveKeys(clientNonce, serverNonce)
		require.NoError(t, err)

		assert.Len(t, keys.ClientSigningKey, 32)
		assert.Len(t, keys.ServerSigningKey, 32)
		assert.NotEqual(t, keys.ClientSigningKey, keys.ClientEncryptingKey)
		assert.NotEqual(t, keys.ClientSigningKey, keys.ServerSigningKey)
	})

	t.Run("nonce order matters", func(t *testing.T) {
		forward, err := DeriveKeys(clientNonce, serverNonce)
		require.NoError(t, err)
		reversed, err := DeriveKeys(serverNonce, clientNonce)
		require.NoError(t, err)

		assert.NotEqual(t, forward.ClientSigningKey, reversed.ClientSigningKey)
	})

	t.Run("missing nonce", func(t *testing.T) {
		_, err := DeriveKeys(nil, serverNonce)
		assert.ErrorIs(t, err, ErrMissingNonce)

		_, err = DeriveKeys(clientNonce, nil)
		assert.ErrorIs(t, err, ErrMissingNonce)
	})
}
