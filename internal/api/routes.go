package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/api/common"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/readout"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/coordinator"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/versions"
)

const maxHistoryLimit = 500

// Routes holds the handlers' dependencies
type Routes struct {
	coord   coordinator.Coordinator
	fields  []string
	history writer.HistoryWriter
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}

// readiness is ready once the first cycle was committed
func (rr *Routes) readiness(w http.ResponseWriter, _ *http.Request) {
	phase := rr.coord.Snapshot().Phase()
	if phase == status.PhasePending {
		common.WriteJSONResponse(w, ReadinessResponse{Status: "not ready", Phase: phase}, http.StatusServiceUnavailable)
		return
	}
	common.WriteJSONResponse(w, ReadinessResponse{Status: "ready", Phase: phase}, http.StatusOK)
}

func (rr *Routes) vehicle(w http.ResponseWriter, _ *http.Request) {
	snap := rr.coord.Snapshot()
	if !snap.HasRecord() {
		common.WriteErrorResponse(w, fmt.Sprintf("no record available for %s", rr.coord.Plate()), http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, VehicleResponse{
		Plate:       rr.coord.Plate(),
		Record:      snap.Record,
		Stale:       snap.Stale(),
		LastSuccess: snap.LastSuccess,
	}, http.StatusOK)
}

func (rr *Routes) readouts(w http.ResponseWriter, _ *http.Request) {
	snap := rr.coord.Snapshot()
	common.WriteJSONResponse(w, ReadoutsResponse{
		Plate:    rr.coord.Plate(),
		Device:   readout.DeviceInfo(rr.coord.Plate(), snap.Record),
		Readouts: readout.Present(readout.Build(snap, rr.fields)),
		Stolen:   readout.Stolen(snap),
	}, http.StatusOK)
}

func (rr *Routes) readoutByKey(w http.ResponseWriter, r *http.Request) {
	key, err := common.GetAndValidateURLParam(r, "key")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !slices.Contains(rr.fields, key) {
		common.WriteErrorResponse(w, fmt.Sprintf("readout %q is not enabled", key), http.StatusNotFound)
		return
	}
	ro := readout.Build(rr.coord.Snapshot(), []string{key})[0]
	if !ro.Present {
		common.WriteErrorResponse(w, fmt.Sprintf("readout %q has no value", key), http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, ro, http.StatusOK)
}

func (rr *Routes) stolen(w http.ResponseWriter, _ *http.Request) {
	flag := readout.Stolen(rr.coord.Snapshot())
	common.WriteJSONResponse(w, StolenResponse{
		Plate:      rr.coord.Plate(),
		StolenFlag: flag,
		State:      flag.State(),
	}, http.StatusOK)
}

func (rr *Routes) diagnostics(w http.ResponseWriter, _ *http.Request) {
	doc := readout.NewDocument(rr.coord.Plate(), rr.coord.Snapshot(), rr.coord.Interval(), rr.fields)
	common.WriteJSONResponse(w, doc, http.StatusOK)
}

// refresh runs a manual cycle, joining one already in flight
func (rr *Routes) refresh(w http.ResponseWriter, r *http.Request) {
	res := rr.coord.Refresh(r.Context(), coordinator.TriggerManual)

	resp := RefreshResponse{
		Success:  res.Success,
		Changed:  res.Changed,
		Reason:   string(res.Reason),
		Trigger:  string(res.Trigger),
		Shared:   res.Shared,
		Snapshot: res.Snapshot,
	}
	if res.Outcome != nil {
		resp.Registry = res.Outcome.Registry.Label()
		stolen := res.Outcome.Stolen
		resp.Stolen = &stolen
	}

	code := http.StatusOK
	if res.Reason == coordinator.ReasonCancelled {
		code = http.StatusServiceUnavailable
	}
	common.WriteJSONResponse(w, resp, code)
}

func (rr *Routes) historyEntries(w http.ResponseWriter, r *http.Request) {
	limit, err := common.QueryLimit(r, writer.DefaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := rr.history.History(r.Context(), rr.coord.Plate(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read history", "error", err)
		common.WriteErrorResponse(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, HistoryResponse{Plate: rr.coord.Plate(), Entries: entries}, http.StatusOK)
}
