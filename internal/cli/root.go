// Package cli wires the cobra commands to the pipeline.
package cli

import (
	"github.com/BartekS5/cleanetl/internal/config"
	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	cfg     *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cleanetl",
		Short: "cleanetl - load a CSV file into a database table, dropping incomplete rows",
		Long: `cleanetl reads a CSV file (local path or s3://bucket/key), drops every row
with a missing value and replaces the destination table with the result.
Destinations are given as a database URL: sqlite, postgresql, mysql,
mssql, duckdb or mongodb.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return logger.Init(logger.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				File:   cfg.LogFile,
				Output: cmd.ErrOrStderr(),
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "Path to a YAML config file (default ./"+config.DefaultFile+" if present)")
	pf.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.String("log-format", config.DefaultLogFormat, "Log format: text or json")
	pf.String("log-file", "", "Also write logs to this file")

	rootCmd.AddCommand(NewRunCmd(opts))

	return rootCmd
}
