package syncer

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/validatorops/keysync/cmd/keysync/flags"
	"github.com/validatorops/keysync/db"
	"github.com/validatorops/keysync/encryption"
	"github.com/validatorops/keysync/io/file"
)

// SyncWeb3SignerKeys fetches every stored key, decrypts the private keys
// with the operator-held cipher key and regenerates the remote signer's
// key files. The cipher key is read from an environment variable and never
// logged.
func SyncWeb3SignerKeys(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	decryptionKeyEnv := cliCtx.String(flags.DecryptionKeyEnvFlag.Name)
	decryptionKey := os.Getenv(decryptionKeyEnv)
	if decryptionKey == "" {
		return errors.Errorf("empty environment variable %s", decryptionKeyEnv)
	}
	decryptor, err := encryption.NewDecryptor(decryptionKey)
	if err != nil {
		return err
	}

	database, err := db.Open(ctx, cliCtx.String(flags.DBURLFlag.Name), cliCtx.String(flags.TableNameFlag.Name))
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.WithError(err).Debug("Could not close database connection")
		}
	}()

	records, err := database.Keys(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no keys found in the database")
	}

	outputDir, err := file.ExpandPath(cliCtx.String(flags.OutputDirFlag.Name))
	if err != nil {
		return err
	}
	if err := file.MkdirAll(outputDir); err != nil {
		return err
	}
	written, upToDate, err := EmitWeb3SignerKeyFiles(records, decryptor, outputDir)
	if err != nil {
		return err
	}
	if written == 0 {
		fmt.Println(au.BrightGreen(fmt.Sprintf(
			"All %d remote signer key files are already up to date.", upToDate)).Bold())
		return nil
	}
	fmt.Println(au.BrightGreen(fmt.Sprintf(
		"The remote signer now holds %d keys (%d files written, %d unchanged).",
		len(records), written, upToDate)).Bold())
	return nil
}
