package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"p9e.in/crusher/models"
	"p9e.in/crusher/pkg/crusher"
)

// DispatchHandler exposes the dispatch ledger.
type DispatchHandler struct {
	dispatches *crusher.DispatchService
	logger     *logrus.Logger
}

func NewDispatchHandler(dispatches *crusher.DispatchService, logger *logrus.Logger) *DispatchHandler {
	return &DispatchHandler{dispatches: dispatches, logger: logger}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CreateDispatch records a truck leaving the yard against a run
func (h *DispatchHandler) CreateDispatch(w http.ResponseWriter, r *http.Request) {
	var req crusher.NewDispatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreateDispatch", err)
		return
	}
	d, err := h.dispatches.CreateDispatch(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreateDispatch", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDispatch applies a partial update, moving quantity between runs when needed
func (h *DispatchHandler) UpdateDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "UpdateDispatch", err)
		return
	}
	var req crusher.DispatchPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "UpdateDispatch", err)
		return
	}
	d, err := h.dispatches.UpdateDispatch(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, "UpdateDispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CancelDispatch voids a dispatch. The body is optional.
func (h *DispatchHandler) CancelDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "CancelDispatch", err)
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.logger, "CancelDispatch", err)
			return
		}
	}
	d, err := h.dispatches.CancelDispatch(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, r, h.logger, "CancelDispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DispatchHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetDispatch", err)
		return
	}
	d, err := h.dispatches.GetDispatch(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetDispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListDispatches supports ?runId=&salesOrderId=&purchaseOrderId=&status=&from=&to=&includeCancelled=true
func (h *DispatchHandler) ListDispatches(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	f := crusher.DispatchFilter{
		RunID:            q.UUID("runId"),
		SalesOrderID:     q.UUID("salesOrderId"),
		PurchaseOrderID:  q.UUID("purchaseOrderId"),
		DeliveryStatus:   models.DeliveryStatus(strings.ToUpper(q.String("status"))),
		From:             q.Date("from", false),
		To:               q.Date("to", true),
		IncludeCancelled: q.Bool("includeCancelled"),
	}
	if f.DeliveryStatus != "" && !models.IsValidDeliveryStatus(f.DeliveryStatus) {
		q.details["status"] = "must be one of PENDING IN_TRANSIT DELIVERED"
	}
	if err := q.Err(); err != nil {
		writeError(w, r, h.logger, "ListDispatches", err)
		return
	}
	list, err := h.dispatches.ListDispatches(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, "ListDispatches", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
