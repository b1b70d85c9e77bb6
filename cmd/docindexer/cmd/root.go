// Package cmd provides the docindexer CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/logger"
)

type options struct {
	configPath string
	cfg        *config.Config
}

// NewRootCmd creates the root command. Every subcommand sees the loaded
// configuration through opts.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "docindexer",
		Short:         "French document indexer with lemmatisation and spelling correction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (defaults and DI_* variables apply)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCompileLemmasCmd(opts))
	cmd.AddCommand(newCompileFrequenciesCmd(opts))
	cmd.AddCommand(newCorrectCmd(opts))
	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newDigestCmd())
	cmd.AddCommand(newKeygenCmd())
	cmd.AddCommand(newLoadtestCmd(opts))

	return cmd
}

// Execute runs the root command and reports its error on stderr.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}
