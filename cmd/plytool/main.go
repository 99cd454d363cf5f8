// Command plytool inspects, converts and verifies PLY files stored locally,
// on S3 or on Google Cloud Storage.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/plycol/internal/config"
	"github.com/arloliu/plycol/internal/logging"
	"github.com/arloliu/plycol/internal/storage"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand once the configuration is
// loaded.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	logger  *zap.Logger
	storage *storage.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "plytool",
		Short: "Inspect and convert PLY files",
		Long: `plytool reads and writes PLY polygon files in ascii, binary_little_endian and
binary_big_endian encodings, optionally wrapped in zstd, s2, lz4 or gzip.

Locations are local paths or file://, s3://bucket/key and gs://bucket/object URIs.
Settings are read from --config and PLYTOOL_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the configuration")

	root.AddCommand(
		newInfoCmd(a),
		newConvertCmd(a),
		newVerifyCmd(a),
		newExportArrowCmd(a),
		newVersionCmd(),
	)

	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.storage = storage.New(cfg.Storage, logger)

	return nil
}

func (a *app) close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.storage != nil {
		return a.storage.Close()
	}

	return nil
}
