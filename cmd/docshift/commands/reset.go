// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"

	"github.com/docshift/docshift/pkg/store"
)

var flagResetYes bool

// resetCmd drops the migration collection, control record included. Intended
// for test and development databases.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the migration collection",
	Long:  "Delete the control record and the rest of the migration collection. Destructive; requires --yes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagResetYes {
			return errorx.IllegalState.New("refusing to reset without --yes")
		}

		return withStore(cmd.Context(), func(st store.Store) error {
			if err := st.Reset(cmd.Context()); err != nil {
				return err
			}

			logger.Info().Str("collection", cfg.Store.Collection).Msg("dropped migration collection")
			cmd.Println("migration collection dropped")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().BoolVar(&flagResetYes, "yes", false, "confirm the destructive reset")
}
