package encryption

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/validatorops/keysync/testing/assert"
	"github.com/validatorops/keysync/testing/require"
)

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)
	dec, err := NewDecryptor(enc.KeyString())
	require.NoError(t, err)

	tests := [][]byte{
		[]byte("12345678901234567890"),
		{0x00},
		{},
		bytes.Repeat([]byte{0xff, 0x00}, 512),
	}
	for _, plaintext := range tests {
		ciphertext, nonce, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		recovered, err := dec.Decrypt(EncodeToString(ciphertext), EncodeToString(nonce))
		require.NoError(t, err)
		require.DeepEqual(t, plaintext, recovered)
	}
}

func TestEncryptor_KeyIs32Bytes(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)
	assert.Equal(t, KeySize, len(enc.Key()))
}

func TestEncryptor_KeyStringIsBase64(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(enc.KeyString())
	require.NoError(t, err)
	assert.DeepEqual(t, enc.Key(), decoded)
}

func TestEncryptor_UniqueNonces(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)
	_, nonce1, err := enc.Encrypt([]byte("test data"))
	require.NoError(t, err)
	_, nonce2, err := enc.Encrypt([]byte("test data"))
	require.NoError(t, err)
	assert.DeepNotEqual(t, nonce1, nonce2)
}

func TestDecryptor_WrongKeyFails(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)
	other, err := NewEncryptor()
	require.NoError(t, err)

	ciphertext, nonce, err := enc.Encrypt([]byte("secret data"))
	require.NoError(t, err)

	dec, err := NewDecryptor(other.KeyString())
	require.NoError(t, err)
	_, err = dec.Decrypt(EncodeToString(ciphertext), EncodeToString(nonce))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptor_TamperedCiphertextFails(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)
	dec, err := NewDecryptor(enc.KeyString())
	require.NoError(t, err)

	ciphertext, nonce, err := enc.Encrypt([]byte("secret data"))
	require.NoError(t, err)

	flipped := make([]byte, len(ciphertext))
	copy(flipped, ciphertext)
	flipped[0] ^= 0x01
	_, err = dec.Decrypt(EncodeToString(flipped), EncodeToString(nonce))
	require.ErrorIs(t, err, ErrDecryptionFailed)

	flippedNonce := make([]byte, len(nonce))
	copy(flippedNonce, nonce)
	flippedNonce[0] ^= 0x01
	_, err = dec.Decrypt(EncodeToString(ciphertext), EncodeToString(flippedNonce))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNewDecryptor_RejectsBadKeys(t *testing.T) {
	_, err := NewDecryptor("not base64!!!")
	require.ErrorContains(t, "could not decode cipher key", err)

	_, err = NewDecryptor(base64.StdEncoding.EncodeToString([]byte("too short")))
	require.ErrorContains(t, "cipher key must be 32 bytes", err)
}
