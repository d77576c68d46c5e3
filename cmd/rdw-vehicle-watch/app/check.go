package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	watchapp "github.com/rdwwatch/rdw-vehicle-watch/internal/app"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/readout"
	pkgsync "github.com/rdwwatch/rdw-vehicle-watch/internal/sync"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/coordinator"
)

// errCheckFailed is returned when neither source produced an answer
var errCheckFailed = errors.New("refresh cycle failed")

var checkCmd = &cobra.Command{
	Use:   "check [plate]",
	Short: "Run one refresh cycle and print the result",
	Long: `Query the registry and the stolen-vehicle register once and print the merged
record as JSON. Nothing is persisted. The command exits non-zero when the cycle
was not productive.

The plate argument overrides the configured plate.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("readouts", false, "Print readouts instead of the raw record")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if len(args) == 1 {
		cliViper.Set(config.KeyPlate, args[0])
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	readouts, err := cmd.Flags().GetBool("readouts")
	if err != nil {
		return fmt.Errorf("failed to get readouts flag: %w", err)
	}

	manager, err := watchapp.NewSyncManager(cfg, nil, nil, nil)
	if err != nil {
		return err
	}

	return checkPlate(ctx, cmd.OutOrStdout(), cfg, manager, readouts)
}

// checkReport is the JSON document printed by check
type checkReport struct {
	Plate    plate.Identifier   `json:"plate"`
	Success  bool               `json:"success"`
	Registry string             `json:"registry,omitempty"`
	Stolen   string             `json:"stolen,omitempty"`
	Record   any                `json:"record,omitempty"`
	Readouts []readout.Readout  `json:"readouts,omitempty"`
	Device   *readout.Device    `json:"device,omitempty"`
	Reason   coordinator.Reason `json:"reason"`
}

func checkPlate(ctx context.Context, out io.Writer, cfg *config.Config, manager pkgsync.Manager, readouts bool) error {
	id, err := cfg.Plate()
	if err != nil {
		return fmt.Errorf("invalid license plate: %w", err)
	}

	coord := coordinator.New(id, manager)
	res := coord.Refresh(ctx, coordinator.TriggerManual)

	report := checkReport{Plate: id, Success: res.Success, Reason: res.Reason}
	if res.Outcome != nil {
		report.Registry = res.Outcome.Registry.Label()
		report.Stolen = res.Outcome.Stolen.String()
	}
	if res.Record != nil {
		if readouts {
			report.Readouts = readout.Build(res.Snapshot, cfg.Vehicle.EnabledFields())
			device := readout.DeviceInfo(id, res.Record)
			report.Device = &device
		} else {
			report.Record = res.Record
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if !res.Success {
		return errCheckFailed
	}
	return nil
}
