package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facility-hub/facility-hub/internal/application/guard"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue in-progress requests as delayed once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.sweeper.Sweep(cmd.Context(), guard.Actor{ID: user.SystemActorID, Role: user.RoleSystem})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "delayed %d request(s)\n", n)
			return err
		},
	}
}
