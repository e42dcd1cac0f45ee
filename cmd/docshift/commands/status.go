// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/json"
	"strings"

	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docshift/docshift/pkg/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the control record",
	Long:  "Show the current migration control record: applied version, lock state and lock owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			rec, err := st.Get(cmd.Context())
			if err != nil {
				return err
			}

			output, err := formatRecord(rec, flagOutputFormat)
			if err != nil {
				return err
			}

			cmd.Println(output)
			return nil
		})
	},
}

func formatRecord(rec store.ControlRecord, format string) (string, error) {
	var output []byte
	var err error
	switch strings.ToLower(format) {
	case "json":
		output, err = json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return "", errorx.IllegalFormat.Wrap(err, "Error marshaling control record to JSON")
		}
	case "yaml":
		output, err = yaml.Marshal(rec)
		if err != nil {
			return "", errorx.IllegalFormat.Wrap(err, "Error marshaling control record to YAML")
		}
	default:
		return "", errorx.IllegalFormat.New("unsupported format: %s", format)
	}

	return string(output), nil
}
