package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitAboutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init-about",
		Short: "Seed the about document with default content if it is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.closeLog()
			db, err := ctx.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer disconnect(db)

			if err := db.InitAbout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "About content initialized")
			return nil
		},
	}
}
