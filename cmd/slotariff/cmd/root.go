// Package cmd provides the slotariff CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/config"
	"github.com/bher20/slotariff/internal/logging"
)

// version is set at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "slotariff",
	Short: "Slovenian residential electricity tariff engine",
	Long: `slotariff computes the five-block network tariff and the total
per-kWh electricity price for Slovenian households.

Examples:
  slotariff serve --config slotariff.yaml
  slotariff compute --at 2025-01-15T10:00:00+01:00
  slotariff holidays --year 2026
  slotariff export --date 2025-12-25 --format pdf`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, log, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "slotariff %s\n", version)
	},
}
