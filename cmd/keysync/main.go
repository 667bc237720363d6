// Package main defines the keysync command line tool, which moves validator
// signing keys from password-protected keystore files into a shared database
// and regenerates the configuration files consumed by validator clients and
// the remote signer.
package main

import (
	"os"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/validatorops/keysync/cmd/keysync/flags"
	"github.com/validatorops/keysync/syncer"
)

var log = logrus.WithField("prefix", "main")

var appFlags = []cli.Flag{
	flags.VerbosityFlag,
	flags.LogFormatFlag,
	flags.ConfigFileFlag,
}

var syncDBFlags = []cli.Flag{
	flags.DBURLFlag,
	flags.TableNameFlag,
	flags.KeystoresDirFlag,
	flags.ValidatorCapacityFlag,
	flags.KeystorePasswordEnvFlag,
	flags.AcceptFlag,
}

var syncValidatorKeysFlags = []cli.Flag{
	flags.DBURLFlag,
	flags.TableNameFlag,
	flags.OutputDirFlag,
	flags.Web3SignerURLEnvFlag,
	flags.DefaultFeeRecipientFlag,
	flags.ValidatorIndexFlag,
}

var syncWeb3SignerKeysFlags = []cli.Flag{
	flags.DBURLFlag,
	flags.TableNameFlag,
	flags.OutputDirFlag,
	flags.DecryptionKeyEnvFlag,
}

func main() {
	app := &cli.App{
		Name:  "keysync",
		Usage: "synchronizes validator signing keys between keystore files, a shared database and signing infrastructure",
		Flags: appFlags,
		Commands: []*cli.Command{
			{
				Name:   "sync-db",
				Usage:  "decrypts keystore files and replaces the database contents with re-encrypted keys",
				Flags:  syncDBFlags,
				Action: syncer.SyncDB,
			},
			{
				Name:   "sync-validator-keys",
				Usage:  "generates validator client configuration for one validator shard",
				Flags:  syncValidatorKeysFlags,
				Action: syncer.SyncValidatorKeys,
			},
			{
				Name:   "sync-web3signer-keys",
				Usage:  "decrypts stored keys and generates the remote signer key files",
				Flags:  syncWeb3SignerKeysFlags,
				Action: syncer.SyncWeb3SignerKeys,
			},
		},
		Before: func(ctx *cli.Context) error {
			// Load any flags from file, if specified.
			if ctx.IsSet(flags.ConfigFileFlag.Name) {
				if err := altsrc.InitInputSourceWithContext(
					appFlags,
					altsrc.NewYamlSourceFromFlagFunc(flags.ConfigFileFlag.Name))(ctx); err != nil {
					return err
				}
			}

			switch format := ctx.String(flags.LogFormatFlag.Name); format {
			case "text":
				formatter := new(prefixed.TextFormatter)
				formatter.TimestampFormat = "2006-01-02 15:04:05"
				formatter.FullTimestamp = true
				logrus.SetFormatter(formatter)
			case "fluentd":
				logrus.SetFormatter(joonix.NewFormatter())
			case "json":
				logrus.SetFormatter(&logrus.JSONFormatter{})
			default:
				return cli.Exit("unknown log format "+format, 1)
			}

			level, err := logrus.ParseLevel(ctx.String(flags.VerbosityFlag.Name))
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
