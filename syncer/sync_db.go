package syncer

import (
	"fmt"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/validatorops/keysync/cmd/keysync/flags"
	"github.com/validatorops/keysync/db"
	"github.com/validatorops/keysync/encryption"
	"github.com/validatorops/keysync/io/prompt"
	"github.com/validatorops/keysync/keystores"
)

var au = aurora.NewAurora(true)

// SyncDB imports keystores into the shared database: discover, decrypt,
// assign shard indices, re-encrypt under a fresh per-run cipher key, and
// replace the stored record set in one transaction. The cipher key is
// printed for operator custody at the end; it is never stored or logged.
func SyncDB(cliCtx *cli.Context) error {
	ctx := cliCtx.Context
	validatorCapacity := cliCtx.Int(flags.ValidatorCapacityFlag.Name)
	if validatorCapacity < 1 {
		return errors.Errorf("validator capacity must be at least 1, got %d", validatorCapacity)
	}

	dbURL := cliCtx.String(flags.DBURLFlag.Name)
	if dbURL == "" {
		promptedURL, err := prompt.ValidatePrompt(os.Stdin, "Enter the database connection address", prompt.NotEmpty)
		if err != nil {
			return err
		}
		dbURL = promptedURL
	}
	database, err := db.Open(ctx, dbURL, cliCtx.String(flags.TableNameFlag.Name))
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.WithError(err).Debug("Could not close database connection")
		}
	}()

	keystoresDir := cliCtx.String(flags.KeystoresDirFlag.Name)
	if keystoresDir == "" {
		promptedDir, err := prompt.DefaultPrompt("Enter the folder holding the keystore files", "./validator_keys")
		if err != nil {
			return err
		}
		keystoresDir = promptedDir
	}
	groups, err := keystores.Locate(keystoresDir)
	if err != nil {
		return err
	}
	if keystores.NumKeystores(groups) == 0 {
		return errors.Errorf("no keystore files found in %s", keystoresDir)
	}

	log.WithField("keystores", keystores.NumKeystores(groups)).Info("Decrypting private keys")
	keys, err := DecryptGroups(groups, groupPasswordFunc(cliCtx), true)
	if err != nil {
		return err
	}

	if !cliCtx.Bool(flags.AcceptFlag.Name) {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Found %d key pairs, apply changes to the database", len(keys)),
			IsConfirm: true,
			Default:   "y",
		}
		if _, err := confirm.Run(); err != nil {
			return errors.New("aborted, no changes applied to the database")
		}
	}

	encryptor, err := encryption.NewEncryptor()
	if err != nil {
		return err
	}
	records, err := BuildRecords(keys, validatorCapacity, encryptor)
	if err != nil {
		return err
	}
	if err := database.ReplaceKeys(ctx, records); err != nil {
		return err
	}

	shards := NumShards(len(records), validatorCapacity)
	fmt.Println(au.BrightGreen(fmt.Sprintf(
		"The database now contains %d validator keys across %d shards.", len(records), shards)).Bold())
	fmt.Printf(
		"Set the remote signer's decryption key environment variable to:\n%s\n",
		encryptor.KeyString(),
	)
	return nil
}

// groupPasswordFunc resolves passwords either from a single environment
// variable for non-interactive runs, or by prompting once per group.
func groupPasswordFunc(cliCtx *cli.Context) PasswordFunc {
	if envName := cliCtx.String(flags.KeystorePasswordEnvFlag.Name); envName != "" {
		return func(group keystores.Group) (string, error) {
			password := os.Getenv(envName)
			if password == "" {
				return "", errors.Errorf("empty environment variable %s", envName)
			}
			return password, nil
		}
	}
	return func(group keystores.Group) (string, error) {
		return prompt.PasswordPrompt(
			fmt.Sprintf("Enter the password to decrypt validator private keys in %s", group.Dir),
			prompt.NotEmpty,
		)
	}
}
