package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newProvisionCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Apply a YAML seed of counters, reference data and users",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.migrate(cmd.Context()); err != nil {
				return err
			}
			report, err := a.provision.ApplyFile(cmd.Context(), file)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Seed file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
