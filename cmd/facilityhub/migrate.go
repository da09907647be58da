package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and default counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.migrate(cmd.Context()); err != nil {
				return err
			}
			if err := a.sequences.EnsureDefaults(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info().Str("store", a.store.name).Msg("migrations applied")
			return nil
		},
	}
}
