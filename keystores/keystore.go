// Package keystores discovers EIP-2335 keystore files on disk and decrypts
// them with operator-supplied passwords.
package keystores

import (
	"encoding/hex"
	"encoding/json"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	keystorev4 "github.com/wealdtech/go-eth2-wallet-encryptor-keystorev4"
)

// IncorrectPasswordErrMsg defines a common error string representing an
// EIP-2335 keystore password was incorrect.
const IncorrectPasswordErrMsg = "invalid checksum"

// ErrWrongPassword is returned when a keystore fails to decrypt with the
// password supplied for its group.
var ErrWrongPassword = errors.New("password incorrect")

// Keystore json file representation as a Go struct.
type Keystore struct {
	Crypto  map[string]interface{} `json:"crypto"`
	ID      string                 `json:"uuid"`
	Pubkey  string                 `json:"pubkey"`
	Version uint                   `json:"version"`
	Name    string                 `json:"name"`
}

// KeyMaterial is a decrypted signing key. It exists only in memory during an
// import run and is never persisted in plaintext.
type KeyMaterial struct {
	PublicKey    string // 0x-prefixed hex, canonical lowercase
	SecretBytes  []byte
	Path         string // origin file, for diagnostics
	FeeRecipient string // 0x address or empty for the consumer default
}

// ParseKeystoreFile reads and validates a keystore file.
func ParseKeystoreFile(path string) (*Keystore, error) {
	encoded, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read keystore file %s", path)
	}
	keystore := &Keystore{}
	if err := json.Unmarshal(encoded, keystore); err != nil {
		return nil, errors.Wrapf(err, "could not decode keystore json at %s", path)
	}
	if _, err := hex.DecodeString(strings.TrimPrefix(keystore.Pubkey, "0x")); err != nil {
		return nil, errors.Wrapf(err, "keystore at %s has a malformed pubkey", path)
	}
	return keystore, nil
}

// PublicKey returns the keystore's public key in the canonical 0x-prefixed
// lowercase hex form used everywhere downstream.
func (k *Keystore) PublicKey() string {
	return "0x" + strings.ToLower(strings.TrimPrefix(k.Pubkey, "0x"))
}

// Decrypt extracts the validator signing private key from the keystore by
// utilizing the password. A wrong password surfaces as ErrWrongPassword.
func (k *Keystore) Decrypt(password string) ([]byte, error) {
	decryptor := keystorev4.New()
	secret, err := decryptor.Decrypt(k.Crypto, password)
	if err != nil {
		if strings.Contains(err.Error(), IncorrectPasswordErrMsg) {
			return nil, ErrWrongPassword
		}
		return nil, errors.Wrap(err, "could not decrypt keystore")
	}
	return secret, nil
}
