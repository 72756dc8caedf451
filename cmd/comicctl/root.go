package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "comicctl",
		Short:         "Manage the comic catalog files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.dataDir, "data-dir", "./data", "Data directory")
	flags.StringVar(&ctx.seedPath, "seed", "", "Read-only seed CSV file (default <data-dir>/Comics.csv)")
	flags.StringVar(&ctx.deltaPath, "delta", "", "Delta JSONL file (default <data-dir>/comics.jsonl)")
	flags.BoolVar(&ctx.jsonOutput, "json", false, "Print JSON instead of tables")
	flags.BoolVar(&ctx.history, "history", false, "Commit changes to the git repository in the data directory")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newListCommand(ctx),
		newSearchCommand(ctx),
		newShowCommand(ctx),
		newAddCommand(ctx),
		newEditCommand(ctx),
		newDeleteCommand(ctx),
		newImportCommand(ctx),
		newExportCommand(ctx),
		newStatsCommand(ctx),
		newHistoryCommand(ctx),
	)
	return rootCmd
}
