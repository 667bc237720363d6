package syncer

import (
	"fmt"

	"github.com/k0kubun/go-ansi"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/validatorops/keysync/keystores"
)

// PasswordFunc supplies the decryption password for one keystore group. It
// is called once per group; every keystore in a group shares a password.
type PasswordFunc func(group keystores.Group) (string, error)

// DecryptGroups decrypts every keystore file in every group in locator
// order, producing the flat key sequence whose positions determine validator
// index assignment. A single keystore failing to decrypt fails the whole
// run, naming the file, so the operator can fix the password rather than
// silently losing keys.
func DecryptGroups(groups []keystores.Group, passwordFor PasswordFunc, showProgress bool) ([]keystores.KeyMaterial, error) {
	var keys []keystores.KeyMaterial
	for _, group := range groups {
		password, err := passwordFor(group)
		if err != nil {
			return nil, err
		}
		var bar *progressbar.ProgressBar
		if showProgress {
			bar = initializeProgressBar(len(group.Files), fmt.Sprintf("Decrypting keystores in %s:", group.Dir))
		}
		for _, path := range group.Files {
			keystore, err := keystores.ParseKeystoreFile(path)
			if err != nil {
				return nil, err
			}
			secret, err := keystore.Decrypt(password)
			if err != nil {
				if errors.Is(err, keystores.ErrWrongPassword) {
					return nil, errors.Wrapf(err, "unable to decrypt %s with the provided password", path)
				}
				return nil, errors.Wrapf(err, "could not decrypt %s", path)
			}
			keys = append(keys, keystores.KeyMaterial{
				PublicKey:    keystore.PublicKey(),
				SecretBytes:  secret,
				Path:         path,
				FeeRecipient: group.FeeRecipient,
			})
			if bar != nil {
				if err := bar.Add(1); err != nil {
					log.WithError(err).Debug("Could not increment progress bar")
				}
			}
		}
	}
	return keys, nil
}

func initializeProgressBar(numItems int, msg string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		numItems,
		progressbar.OptionFullWidth(),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
		progressbar.OptionSetDescription(msg),
	)
}
