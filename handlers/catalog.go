package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"p9e.in/crusher/pkg/catalog"
)

// CatalogHandler serves materials, customers and vendors.
type CatalogHandler struct {
	materials *catalog.MaterialService
	parties   *catalog.PartyService
	logger    *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(materials *catalog.MaterialService, parties *catalog.PartyService, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{materials: materials, parties: parties, logger: logger}
}

// CreateMaterial registers a new material
func (h *CatalogHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewMaterial
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreateMaterial", err)
		return
	}
	material, err := h.materials.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreateMaterial", err)
		return
	}
	writeJSON(w, http.StatusCreated, material)
}

func (h *CatalogHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetMaterial", err)
		return
	}
	material, err := h.materials.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetMaterial", err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func (h *CatalogHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.materials.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "ListMaterials", err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

// CreateCustomer registers a new customer
func (h *CatalogHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewParty
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreateCustomer", err)
		return
	}
	customer, err := h.parties.CreateCustomer(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreateCustomer", err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *CatalogHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetCustomer", err)
		return
	}
	customer, err := h.parties.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetCustomer", err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *CatalogHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.parties.ListCustomers(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "ListCustomers", err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

// CreateVendor registers a new vendor
func (h *CatalogHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewParty
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, "CreateVendor", err)
		return
	}
	vendor, err := h.parties.CreateVendor(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "CreateVendor", err)
		return
	}
	writeJSON(w, http.StatusCreated, vendor)
}

func (h *CatalogHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "GetVendor", err)
		return
	}
	vendor, err := h.parties.GetVendor(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "GetVendor", err)
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}

func (h *CatalogHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.parties.ListVendors(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "ListVendors", err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}
