// Package app provides the command line interface of the RDW vehicle watcher.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/versions"
)

// cliViper holds flag and RDW_WATCH_* overrides shared by all commands
var cliViper = config.NewViper()

var rootCmd = &cobra.Command{
	Use:               "rdw-vehicle-watch",
	DisableAutoGenTag: true,
	Short:             "Watch a Dutch vehicle registration",
	Long: `rdw-vehicle-watch polls the RDW open-data registry and the stolen-vehicle register
for one license plate and serves the merged record over a read-only HTTP API.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to configuration file (YAML format)")
	flags.String(config.KeyPlate, "", "License plate to watch (overrides vehicle.licensePlate)")
	flags.String(config.KeyStatusDir, "", "Directory for status files (overrides status.dir)")

	for _, key := range []string{config.KeyPlate, config.KeyStatusDir} {
		if err := cliViper.BindPFlag(key, flags.Lookup(key)); err != nil {
			slog.Error("Error binding flag", "flag", key, "error", err)
		}
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config when given and applies flag and environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	opts := []config.Option{config.WithViper(cliViper)}
	if path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}

		out := cmd.OutOrStdout()
		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info: %w", err)
			}
			_, err = fmt.Fprintln(out, string(output))
			return err
		}

		_, err = fmt.Fprintf(out, "rdw-vehicle-watch %s (commit %s, built %s, %s %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		return err
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
