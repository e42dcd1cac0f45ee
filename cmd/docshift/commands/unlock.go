// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/cobra"

	"github.com/docshift/docshift/pkg/store"
)

// unlockCmd force-releases the migration lock. A lock left behind by a
// crashed run blocks every later run until an operator clears it; this is
// that manual intervention.
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force-release the migration lock",
	Long:  "Release the migration lock left behind by a crashed or killed run, regardless of owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			rec, err := st.Get(cmd.Context())
			if err != nil {
				return err
			}

			if !rec.Locked {
				cmd.Println("migration lock is not held, nothing to release")
				return nil
			}

			if err := st.ReleaseLock(cmd.Context()); err != nil {
				return err
			}

			logger.Info().
				Str("lockedBy", rec.LockedBy).
				Str("version", rec.Version).
				Msg("force-released migration lock")

			cmd.Println("migration lock released")
			return nil
		})
	},
}
