package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/readout"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the persisted status of the watched plate",
	Long: `Print the last persisted snapshot as a diagnostics document. This reads the
status file written by a running or previous serve and does not contact any source.

With --all every plate found under the status directory is printed, as JSON
or, with --format table, one row per plate.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("all", false, "Print every plate under the status directory")
	statusCmd.Flags().String("format", formatJSON, "Output format for --all (json or table)")
}

const (
	formatJSON  = "json"
	formatTable = "table"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != formatJSON && format != formatTable {
		return fmt.Errorf("unsupported format %q", format)
	}

	if all {
		dir := cliViper.GetString(config.KeyStatusDir)
		return printAllStatus(cmd, status.NewFileStatusPersistence(dir), format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return printStatus(cmd, status.NewFileStatusPersistence(cfg.Status.Dir), cfg)
}

func printStatus(cmd *cobra.Command, persistence status.StatusPersistence, cfg *config.Config) error {
	id, err := cfg.Plate()
	if err != nil {
		return fmt.Errorf("invalid license plate: %w", err)
	}

	snap, err := persistence.LoadStatus(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load status: %w", err)
	}

	doc := readout.NewDocument(id, snap, cfg.Sync.GetInterval(), cfg.Vehicle.EnabledFields())
	return writeJSON(cmd.OutOrStdout(), doc)
}

func printAllStatus(cmd *cobra.Command, persistence status.StatusPersistence, format string) error {
	snaps, err := persistence.LoadAllStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load status: %w", err)
	}
	docs := make([]readout.Document, 0, len(snaps))
	for id, snap := range snaps {
		docs = append(docs, readout.NewDocument(id, snap, 0, record.KnownKeys))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Plate < docs[j].Plate })

	if format == formatTable {
		return writeTable(cmd.OutOrStdout(), docs)
	}
	return writeJSON(cmd.OutOrStdout(), docs)
}

func writeTable(out io.Writer, docs []readout.Document) error {
	table := tablewriter.NewWriter(out)
	table.Header("Plate", "Phase", "Stolen", "Last success", "Errors", "Model")
	for _, doc := range docs {
		lastSuccess := "-"
		if doc.LastUpdateTimestamp != nil {
			lastSuccess = doc.LastUpdateTimestamp.UTC().Format(time.RFC3339)
		}
		stolen := record.StolenUnknown.String()
		if doc.Data != nil {
			stolen = doc.Data.Stolen.String()
		}
		row := []string{
			doc.Plate.String(),
			string(doc.Phase),
			stolen,
			lastSuccess,
			strconv.Itoa(doc.ConsecutiveErrors),
			doc.Device.Model,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
