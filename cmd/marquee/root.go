package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var outputFlag string
	var offlineFlag bool

	ctx := newCommandContext(&configFlag, &outputFlag, &offlineFlag)

	rootCmd := &cobra.Command{
		Use:           "marquee",
		Short:         "Movie catalog server and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			if _, err := ctx.outputFormat(); err != nil {
				return err
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "Use the built-in sample library instead of OMDb")

	rootCmd.AddCommand(newServeCommand(ctx))
	for _, cmd := range newCatalogCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
