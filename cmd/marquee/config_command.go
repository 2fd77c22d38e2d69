package main

import (
	"github.com/spf13/cobra"

	"github.com/marquee/marquee/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			shown := redacted(cfg)
			if format, _ := ctx.outputFormat(); format == "json" {
				return writeJSON(cmd, shown)
			}
			return writeYAML(cmd, shown)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:         "defaults",
		Short:       "Print the built-in defaults as YAML, suitable for config.yaml",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeYAML(cmd, redacted(config.Default()))
		},
	})

	return configCmd
}

// redacted returns a copy of cfg with the API key masked.
func redacted(cfg *config.Config) *config.Config {
	out := *cfg
	if out.OMDB.APIKey != "" {
		out.OMDB.APIKey = "********"
	}
	return &out
}
