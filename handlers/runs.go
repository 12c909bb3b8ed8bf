package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"p9e.in/crusher/pkg/crusher"
)

// RunHandler exposes the production run ledger.
type RunHandler struct {
	runs   *crusher.RunService
	logger *logrus.Logger
}

func NewRunHandler(runs *crusher.RunService, logger *logrus.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logger}
}

// CreateRun declares the output of a crusher run
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req crusher.NewRun
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreateRun", err)
		return
	}
	run, err := h.runs.CreateRun(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreateRun", err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// UpdateRun applies a partial update to a run
func (h *RunHandler) UpdateRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "UpdateRun", err)
		return
	}
	var req crusher.RunPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "UpdateRun", err)
		return
	}
	run, err := h.runs.UpdateRun(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, "UpdateRun", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetRun", err)
		return
	}
	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetRun", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Available reports what is still dispatchable from a run
func (h *RunHandler) Available(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "Available", err)
		return
	}
	qty, err := h.runs.AvailableQuantity(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "Available", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runId": id, "availableQty": qty})
}

// ListRuns supports ?materialId=&machineId=&from=&to=&available=true
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	f := crusher.RunFilter{
		MaterialID:    q.UUID("materialId"),
		MachineID:     q.String("machineId"),
		From:          q.Date("from", false),
		To:            q.Date("to", true),
		AvailableOnly: q.Bool("available"),
	}
	if err := q.Err(); err != nil {
		writeError(w, r, h.logger, "ListRuns", err)
		return
	}
	runs, err := h.runs.ListRuns(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, "ListRuns", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Reconcile recomputes a run's dispatched quantity from its dispatches
func (h *RunHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "Reconcile", err)
		return
	}
	result, err := h.runs.Reconcile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "Reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
