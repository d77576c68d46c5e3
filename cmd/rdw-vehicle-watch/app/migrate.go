package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rdwwatch/rdw-vehicle-watch/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Manage the schema of the change history database. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply all pending migrations to the database configured under database in --config.
Running serve with a database configured does this automatically.`,
	RunE: runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert database migrations",
	Long: `Revert migrations on the configured database.
WARNING: reverting the first migration drops the change history.

Examples:
  # Revert one step
  rdw-vehicle-watch migrate down --config config.yaml --num-steps 1 --yes

  # Revert everything
  rdw-vehicle-watch migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateDownCmd.Flags().UintP("num-steps", "n", 0, "Number of steps to revert (0 = all)")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func migrationConnString(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Database == nil {
		return "", fmt.Errorf("database configuration is required")
	}

	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return "", fmt.Errorf("failed to build connection string: %w", err)
	}

	slog.Info("Using database",
		"host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	return connString, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	connString, err := migrationConnString(cmd)
	if err != nil {
		return err
	}

	ok, err := confirmed(cmd, "Apply pending migrations?")
	if err != nil || !ok {
		return err
	}

	if err := database.MigrateUp(connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if numSteps > math.MaxInt {
		return fmt.Errorf("number of steps exceeds maximum allowed value")
	}

	connString, err := migrationConnString(cmd)
	if err != nil {
		return err
	}

	prompt := "WARNING: This will revert ALL migrations and drop the change history. Continue?"
	if numSteps > 0 {
		prompt = fmt.Sprintf("WARNING: This will revert %d migration(s) and may drop history. Continue?", numSteps)
	}
	ok, err := confirmed(cmd, prompt)
	if err != nil || !ok {
		return err
	}

	// #nosec G115 -- overflow checked above
	if err := database.MigrateDown(connString, int(numSteps)); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// confirmed returns true when --yes is set or the user answers yes on stdin.
func confirmed(cmd *cobra.Command, prompt string) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}

	if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to run non-interactively")
	}

	if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
		slog.Info("Migration cancelled by user")
		return false, nil
	}
	return true, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (yes/no): ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
