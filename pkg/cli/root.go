package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the label-catalog command line.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFileFlag string

	ctx := newCommandContext(&configFlag, &envFileFlag)

	rootCmd := &cobra.Command{
		Use:           "label-catalog",
		Short:         "Label catalog API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Dotenv file loaded before the environment")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newInitAboutCommand(ctx))
	rootCmd.AddCommand(newSyncCheckCommand(ctx))

	return rootCmd
}
