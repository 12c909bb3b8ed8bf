package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"p9e.in/crusher/models"
	"p9e.in/crusher/pkg/orders"
)

type OrderHandler struct {
	orders *orders.OrderService
	logger *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(svc *orders.OrderService, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{orders: svc, logger: logger}
}

// orderFilter reads ?<party>Id=&materialId=&status= from the query.
func orderFilter(r *http.Request, party string) (orders.OrderFilter, error) {
	q := newQueryParams(r)
	f := orders.OrderFilter{
		PartyID:    q.UUID(party),
		MaterialID: q.UUID("materialId"),
		Status:     models.OrderStatus(strings.ToUpper(q.String("status"))),
	}
	return f, q.Err()
}

// CreateSalesOrder books a new sales order against a customer
func (h *OrderHandler) CreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.NewSalesOrder
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreateSalesOrder", err)
		return
	}
	order, err := h.orders.CreateSalesOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreateSalesOrder", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetSalesOrder", err)
		return
	}
	order, err := h.orders.GetSalesOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetSalesOrder", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListSalesOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r, "customerId")
	if err != nil {
		writeError(w, r, h.logger, "ListSalesOrders", err)
		return
	}
	list, err := h.orders.ListSalesOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, "ListSalesOrders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SalesOrderFulfillment compares the order with the dispatches made against it
func (h *OrderHandler) SalesOrderFulfillment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "SalesOrderFulfillment", err)
		return
	}
	f, err := h.orders.SalesOrderFulfillment(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "SalesOrderFulfillment", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// CreatePurchaseOrder books a new purchase order against a vendor
func (h *OrderHandler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.NewPurchaseOrder
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreatePurchaseOrder", err)
		return
	}
	order, err := h.orders.CreatePurchaseOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreatePurchaseOrder", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetPurchaseOrder", err)
		return
	}
	order, err := h.orders.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetPurchaseOrder", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r, "vendorId")
	if err != nil {
		writeError(w, r, h.logger, "ListPurchaseOrders", err)
		return
	}
	list, err := h.orders.ListPurchaseOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, "ListPurchaseOrders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrderHandler) PurchaseOrderFulfillment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "PurchaseOrderFulfillment", err)
		return
	}
	f, err := h.orders.PurchaseOrderFulfillment(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "PurchaseOrderFulfillment", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
