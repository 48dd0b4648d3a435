package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor("test-secret-key")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("ya29.access-token-value")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.access-token-value", ciphertext)

	plain, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token-value", plain)
}

func TestEncryptProducesUniqueCiphertext(t *testing.T) {
	enc, err := NewEncryptor("test-secret-key")
	require.NoError(t, err)

	a, err := enc.Encrypt("same-token")
	require.NoError(t, err)
	b, err := enc.Encrypt("same-token")
	require.NoError(t, err)

	// Random nonce per call.
	assert.NotEqual(t, a, b)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	enc1, err := NewEncryptor("key-one")
	require.NoError(t, err)
	enc2, err := NewEncryptor("key-two")
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt("refresh-token")
	require.NoError(t, err)

	_, err = enc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewEncryptorEmptyKey(t *testing.T) {
	_, err := NewEncryptor("")
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	enc, err := NewEncryptor("test-secret-key")
	require.NoError(t, err)

	_, err = enc.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
