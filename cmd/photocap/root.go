package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/photocap/internal/config"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	debugLevel int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "photocap",
		Short: "Single-shot photo capture with orientation-correct output",
		Long: `photocap drives a still camera (simulated, or a Nikon D90 over the GPIO
remote lines of a Raspberry Pi), writes each still into an album directory,
fixes its EXIF orientation and registers it in the album's gallery index.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", filepath.Join("configs", "default.yaml"), "path to config file (must live in a configs/ directory)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with PHOTOCAP_* overrides")
	cmd.PersistentFlags().IntVarP(&opts.debugLevel, "debug", "d", -1, "debug level 0-4, overrides the config file")

	cmd.AddCommand(newShootCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}
