// Package syncer implements the key transformation pipeline: discovering and
// decrypting keystores, assigning validator shard indices, re-encrypting keys
// for the shared database, and regenerating the configuration artifacts the
// validator clients and the remote signer consume.
package syncer

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/validatorops/keysync/db"
	"github.com/validatorops/keysync/encryption"
	"github.com/validatorops/keysync/keystores"
)

var log = logrus.WithField("prefix", "syncer")

// BuildRecords turns decrypted keys into database records. The key at
// zero-based global position p is assigned validator index p / capacity, so
// shards cover contiguous ranges of the discovery order. The same public key
// appearing twice is an input error rather than a silent overwrite.
func BuildRecords(keys []keystores.KeyMaterial, validatorCapacity int, enc *encryption.Encryptor) ([]db.Record, error) {
	if validatorCapacity < 1 {
		return nil, errors.Errorf("validator capacity must be at least 1, got %d", validatorCapacity)
	}
	seen := make(map[string]string, len(keys))
	records := make([]db.Record, 0, len(keys))
	for pos, key := range keys {
		if prevPath, ok := seen[key.PublicKey]; ok {
			return nil, errors.Errorf(
				"duplicate public key %s found in both %s and %s", key.PublicKey, prevPath, key.Path)
		}
		seen[key.PublicKey] = key.Path

		ciphertext, nonce, err := enc.Encrypt(key.SecretBytes)
		if err != nil {
			return nil, errors.Wrapf(err, "could not encrypt private key from %s", key.Path)
		}
		records = append(records, db.Record{
			PublicKey:           key.PublicKey,
			EncryptedPrivateKey: encryption.EncodeToString(ciphertext),
			Nonce:               encryption.EncodeToString(nonce),
			ValidatorIndex:      pos / validatorCapacity,
			FeeRecipient:        key.FeeRecipient,
		})
	}
	return records, nil
}

// NumShards returns how many validator shards a record set spans given the
// per-shard capacity.
func NumShards(totalKeys, validatorCapacity int) int {
	if totalKeys == 0 {
		return 0
	}
	return (totalKeys-1)/validatorCapacity + 1
}
