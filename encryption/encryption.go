// Package encryption implements the symmetric cipher used to protect
// validator private keys at rest in the shared database. Every import run
// generates a fresh 256-bit AES-GCM key; the key is handed to the operator
// in base64 form and is the only way to decrypt the stored records.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// NonceSize is the standard GCM nonce size in bytes.
	NonceSize = 12
)

// ErrDecryptionFailed is returned when a ciphertext/nonce/key combination
// fails the GCM authentication check, meaning the ciphertext was tampered
// with or the wrong key was supplied.
var ErrDecryptionFailed = errors.New("could not decrypt: ciphertext authentication failed")

// Encryptor encrypts arbitrary payloads under a randomly generated key.
// A fresh nonce is drawn for every Encrypt call; a nonce is never reused
// under the same key.
type Encryptor struct {
	key  []byte
	aead cipher.AEAD
}

// NewEncryptor generates a cryptographically secure random 256-bit key and
// returns an Encryptor sealed around it.
func NewEncryptor() (*Encryptor, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(err, "could not generate cipher key")
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Encryptor{key: key, aead: aead}, nil
}

// Encrypt seals the plaintext and returns the ciphertext together with the
// nonce used for this call.
func (e *Encryptor) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, errors.Wrap(err, "could not generate nonce")
	}
	return e.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Key returns the raw cipher key.
func (e *Encryptor) Key() []byte {
	return e.key
}

// KeyString returns the cipher key in the text-safe encoding handed to the
// operator after an import run.
func (e *Encryptor) KeyString() string {
	return EncodeToString(e.key)
}

// Decryptor opens payloads sealed by an Encryptor whose key the operator
// retained.
type Decryptor struct {
	aead cipher.AEAD
}

// NewDecryptor builds a Decryptor from the base64 key string printed at the
// end of an import run.
func NewDecryptor(keyStr string) (*Decryptor, error) {
	key, err := DecodeString(keyStr)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode cipher key")
	}
	if len(key) != KeySize {
		return nil, errors.Errorf("cipher key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Decryptor{aead: aead}, nil
}

// Decrypt opens base64-encoded ciphertext with its base64-encoded nonce.
// It fails with ErrDecryptionFailed when the authentication check does not
// verify; no partial plaintext is ever returned.
func (d *Decryptor) Decrypt(ciphertextStr, nonceStr string) ([]byte, error) {
	ciphertext, err := DecodeString(ciphertextStr)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode ciphertext")
	}
	nonce, err := DecodeString(nonceStr)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode nonce")
	}
	if len(nonce) != NonceSize {
		return nil, errors.Errorf("nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	plaintext, err := d.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncodeToString encodes ciphertexts, nonces and keys for storage.
func EncodeToString(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeString reverses EncodeToString.
func DecodeString(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "could not create aes cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "could not create gcm")
	}
	return aead, nil
}
