package syncer

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/validatorops/keysync/cmd/keysync/flags"
	"github.com/validatorops/keysync/db"
	"github.com/validatorops/keysync/io/file"
)

// SyncValidatorKeys fetches the public keys for one validator shard and
// regenerates the validator-client configuration artifacts. Nothing is
// decrypted on this path. The command is run by the init container in
// validator pods.
func SyncValidatorKeys(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	index, err := resolveValidatorIndex(cliCtx)
	if err != nil {
		return err
	}
	defaultFeeRecipient := cliCtx.String(flags.DefaultFeeRecipientFlag.Name)
	if !common.IsHexAddress(defaultFeeRecipient) {
		return errors.Errorf("invalid default fee recipient address %q", defaultFeeRecipient)
	}
	web3signerURLEnv := cliCtx.String(flags.Web3SignerURLEnvFlag.Name)
	web3signerURL := os.Getenv(web3signerURLEnv)
	if web3signerURL == "" {
		return errors.Errorf("empty environment variable %s", web3signerURLEnv)
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

	records, err := database.KeysByShard(ctx, index)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.Errorf("no keys found for validator index %d", index)
	}

	outputDir, err := file.ExpandPath(cliCtx.String(flags.OutputDirFlag.Name))
	if err != nil {
		return err
	}
	if err := file.MkdirAll(outputDir); err != nil {
		return err
	}
	updated, err := EmitValidatorConfigs(records, outputDir, web3signerURL, defaultFeeRecipient)
	if err != nil {
		return err
	}
	if len(updated) == 0 {
		fmt.Println(au.BrightGreen("Keys already synced to the last version.").Bold())
		return nil
	}
	log.WithField("files", strings.Join(updated, ", ")).Info("Updated validator configuration")
	fmt.Println(au.BrightGreen(fmt.Sprintf("The validator now uses %d public keys.", len(records))).Bold())
	return nil
}

// resolveValidatorIndex returns the shard index from the flag when set, or
// derives it from the short hostname's trailing -<integer>. Statefulsets
// number their pods <name>-0 through <name>-(replicas-1).
func resolveValidatorIndex(cliCtx *cli.Context) (int, error) {
	if cliCtx.IsSet(flags.ValidatorIndexFlag.Name) {
		index := cliCtx.Int(flags.ValidatorIndexFlag.Name)
		if index < 0 {
			return 0, errors.Errorf("validator index must be non-negative, got %d", index)
		}
		return index, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return 0, errors.Wrap(err, "could not determine hostname")
	}
	return validatorIndexFromHostname(hostname)
}

func validatorIndexFromHostname(hostname string) (int, error) {
	short := strings.Split(hostname, ".")[0]
	parts := strings.Split(short, "-")
	index, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || index < 0 {
		return 0, errors.Errorf("could not derive validator index from hostname %q", hostname)
	}
	return index, nil
}
