// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/joomcode/errorx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/docshift/docshift/internal/buildinfo"
	"github.com/docshift/docshift/internal/config"
	"github.com/docshift/docshift/pkg/logx"
)

// examples:
// ./docshift status --config ./docshift.yaml
// ./docshift status -o json
// ./docshift unlock --config ./docshift.yaml
// ./docshift reset --yes

var (
	// Used for flags.
	flagConfig       string
	flagVersion      bool
	flagOutputFormat string

	cfg    config.Config
	logger zerolog.Logger

	rootCmd = &cobra.Command{
		Use:   "docshift",
		Short: "Versioned migration runner for document databases",
		Long:  "Docshift - a versioned schema and data migration runner for document databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagVersion {
				return printBuildInfo(cmd, flagOutputFormat)
			}

			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")

	// support '--version', '-v' to show version information
	rootCmd.PersistentFlags().BoolVarP(&flagVersion, "version", "v", false, "Show version")
	rootCmd.PersistentFlags().StringVarP(&flagOutputFormat, "output", "o", "yaml", "Output format (yaml|json)")

	// disable command sorting to keep the order of commands as added
	cobra.EnableCommandSorting = false

	// add subcommands
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute executes the root command.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errorx.IllegalArgument.New("context is required")
	}

	cobra.OnInitialize(initRuntime)

	_, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		// Decorate keeps the underlying error type visible for exit code mapping.
		return errorx.Decorate(err, "failed to execute command")
	}

	return nil
}

func initRuntime() {
	var err error
	cfg, err = config.Load(flagConfig)
	cobra.CheckErr(err)

	logger, err = logx.New(cfg.Log)
	cobra.CheckErr(err)
}

func printBuildInfo(cmd *cobra.Command, format string) error {
	output, err := buildinfo.Get().Format(format)
	if err != nil {
		return err
	}

	cmd.Println(output)
	return nil
}
