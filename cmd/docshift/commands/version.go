// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Long:  "Show the current version of the application",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printBuildInfo(cmd, flagOutputFormat)
	},
}
