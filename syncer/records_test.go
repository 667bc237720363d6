package syncer

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/validatorops/keysync/encryption"
	"github.com/validatorops/keysync/keystores"
	"github.com/validatorops/keysync/testing/assert"
	"github.com/validatorops/keysync/testing/require"
)

func makeKeyMaterial(t *testing.T, n int) []keystores.KeyMaterial {
	t.Helper()
	keys := make([]keystores.KeyMaterial, n)
	for i := 0; i < n; i++ {
		secret := make([]byte, 32)
		_, err := rand.Read(secret)
		require.NoError(t, err)
		keys[i] = keystores.KeyMaterial{
			PublicKey:   fmt.Sprintf("0xpub%04d", i),
			SecretBytes: secret,
			Path:        fmt.Sprintf("/keys/keystore-%04d.json", i),
		}
	}
	return keys
}

func TestBuildRecords_IndexAssignment(t *testing.T) {
	enc, err := encryption.NewEncryptor()
	require.NoError(t, err)
	keys := makeKeyMaterial(t, 250)

	records, err := BuildRecords(keys, 100, enc)
	require.NoError(t, err)
	require.Equal(t, 250, len(records))
	for pos, r := range records {
		assert.Equal(t, pos/100, r.ValidatorIndex, "record at position %d", pos)
	}
	assert.Equal(t, 0, records[0].ValidatorIndex)
	assert.Equal(t, 0, records[99].ValidatorIndex)
	assert.Equal(t, 1, records[100].ValidatorIndex)
	assert.Equal(t, 1, records[199].ValidatorIndex)
	assert.Equal(t, 2, records[200].ValidatorIndex)
	assert.Equal(t, 2, records[249].ValidatorIndex)
}

func TestBuildRecords_RejectsInvalidCapacity(t *testing.T) {
	enc, err := encryption.NewEncryptor()
	require.NoError(t, err)
	keys := makeKeyMaterial(t, 1)

	_, err = BuildRecords(keys, 0, enc)
	require.ErrorContains(t, "validator capacity must be at least 1", err)
	_, err = BuildRecords(keys, -5, enc)
	require.ErrorContains(t, "validator capacity must be at least 1", err)
}

func TestBuildRecords_RejectsDuplicatePublicKey(t *testing.T) {
	enc, err := encryption.NewEncryptor()
	require.NoError(t, err)
	keys := makeKeyMaterial(t, 3)
	keys[2].PublicKey = keys[0].PublicKey

	_, err = BuildRecords(keys, 100, enc)
	require.ErrorContains(t, "duplicate public key", err)
	require.ErrorContains(t, keys[0].Path, err)
	require.ErrorContains(t, keys[2].Path, err)
}

func TestBuildRecords_CarriesFeeRecipient(t *testing.T) {
	enc, err := encryption.NewEncryptor()
	require.NoError(t, err)
	keys := makeKeyMaterial(t, 2)
	keys[1].FeeRecipient = "0xabcdef0123456789abcdef0123456789abcdef01"

	records, err := BuildRecords(keys, 100, enc)
	require.NoError(t, err)
	assert.Equal(t, "", records[0].FeeRecipient)
	assert.Equal(t, keys[1].FeeRecipient, records[1].FeeRecipient)
}

func TestBuildRecords_EncryptedKeysRoundTrip(t *testing.T) {
	enc, err := encryption.NewEncryptor()
	require.NoError(t, err)
	keys := makeKeyMaterial(t, 5)

	records, err := BuildRecords(keys, 100, enc)
	require.NoError(t, err)

	dec, err := encryption.NewDecryptor(enc.KeyString())
	require.NoError(t, err)
	for i, r := range records {
		require.NotEqual(t, "", r.Nonce)
		secret, err := dec.Decrypt(r.EncryptedPrivateKey, r.Nonce)
		require.NoError(t, err)
		require.DeepEqual(t, keys[i].SecretBytes, secret)
	}
	// Fresh nonce per record even for identical plaintexts.
	require.NotEqual(t, records[0].Nonce, records[1].Nonce)
}

func TestNumShards(t *testing.T) {
	assert.Equal(t, 0, NumShards(0, 100))
	assert.Equal(t, 1, NumShards(1, 100))
	assert.Equal(t, 1, NumShards(100, 100))
	assert.Equal(t, 2, NumShards(101, 100))
	assert.Equal(t, 3, NumShards(250, 100))
}
