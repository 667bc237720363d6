package syncer

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/validatorops/keysync/db"
	"github.com/validatorops/keysync/encryption"
)

const (
	signerKeyFilePrefix = "key_"
	signerKeyFileSuffix = ".yaml"
	// privateKeyHexLength is the fixed width of a BLS private key in hex.
	privateKeyHexLength = 64
)

// signerKeyFile is the web3signer file-raw key definition, one file per key.
type signerKeyFile struct {
	Type       string `yaml:"type"`
	KeyType    string `yaml:"keyType"`
	PrivateKey string `yaml:"privateKey"`
}

// PrivateKeyHex formats a decrypted private key for the remote signer:
// hex-encoded and left-zero-padded to exactly 64 characters, 0x-prefixed.
func PrivateKeyHex(secret []byte) string {
	encoded := hex.EncodeToString(secret)
	if len(encoded) < privateKeyHexLength {
		encoded = strings.Repeat("0", privateKeyHexLength-len(encoded)) + encoded
	}
	return "0x" + encoded
}

// EmitWeb3SignerKeyFiles decrypts every record and writes one file-raw key
// file per key into outputDir, pruning key files for keys no longer stored.
// All records are decrypted before anything is written: a wrong or corrupted
// cipher key aborts the run without producing partial output. It returns how
// many files were written and how many were already up to date.
func EmitWeb3SignerKeyFiles(records []db.Record, dec *encryption.Decryptor, outputDir string) (written, upToDate int, err error) {
	type renderedKey struct {
		fileName string
		content  []byte
	}
	rendered := make([]renderedKey, 0, len(records))
	for _, r := range records {
		secret, err := dec.Decrypt(r.EncryptedPrivateKey, r.Nonce)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "could not decrypt private key for %s", r.PublicKey)
		}
		content, err := yaml.Marshal(signerKeyFile{
			Type:       "file-raw",
			KeyType:    "BLS",
			PrivateKey: PrivateKeyHex(secret),
		})
		if err != nil {
			return 0, 0, errors.Wrapf(err, "could not marshal key file for %s", r.PublicKey)
		}
		rendered = append(rendered, renderedKey{
			fileName: signerKeyFileName(r.PublicKey),
			content:  content,
		})
	}

	if err := pruneStaleKeyFiles(outputDir, records); err != nil {
		return 0, 0, err
	}
	for _, key := range rendered {
		didWrite, err := WriteIfChanged(filepath.Join(outputDir, key.fileName), key.content)
		if err != nil {
			return written, upToDate, err
		}
		if didWrite {
			written++
		} else {
			upToDate++
		}
	}
	return written, upToDate, nil
}

func signerKeyFileName(publicKey string) string {
	return fmt.Sprintf("%s%s%s", signerKeyFilePrefix, publicKey, signerKeyFileSuffix)
}

// pruneStaleKeyFiles removes key files whose public key is no longer in the
// store, keeping the output directory a pure function of the record set.
func pruneStaleKeyFiles(outputDir string, records []db.Record) error {
	current := make(map[string]bool, len(records))
	for _, r := range records {
		current[signerKeyFileName(r.PublicKey)] = true
	}
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return errors.Wrapf(err, "could not read output directory %s", outputDir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, signerKeyFilePrefix) || !strings.HasSuffix(name, signerKeyFileSuffix) {
			continue
		}
		if current[name] {
			continue
		}
		if err := os.Remove(filepath.Join(outputDir, name)); err != nil {
			return errors.Wrapf(err, "could not remove stale key file %s", name)
		}
		log.WithField("file", name).Info("Removed stale remote signer key file")
	}
	return nil
}
