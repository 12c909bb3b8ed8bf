package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"p9e.in/crusher/handlers"
	"p9e.in/crusher/middleware"
	"p9e.in/crusher/pkg/catalog"
	"p9e.in/crusher/pkg/crusher"
	"p9e.in/crusher/pkg/orders"
	"p9e.in/crusher/pkg/reports"
	"p9e.in/crusher/utils"
)

// Deps carries everything the router hands to the handlers.
type Deps struct {
	DB         *gorm.DB
	Logger     *logrus.Logger
	Auth       *middleware.Auth
	Materials  *catalog.MaterialService
	Parties    *catalog.PartyService
	Orders     *orders.OrderService
	Runs       *crusher.RunService
	Dispatches *crusher.DispatchService
	Reports    *reports.ReportService
	// UploadDir is served under /uploads/ when documents are stored locally.
	UploadDir string
	Version   string
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	health := handlers.NewHealthHandler(d.DB, d.Version)
	r.HandleFunc("/health", health.Health).Methods("GET")
	if d.UploadDir != "" {
		r.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))),
		)
	}

	// =====================================================
	// Protected API Routes (JWT when a secret is configured)
	// =====================================================
	api := r.PathPrefix("/api").Subrouter()
	api.Use(d.Auth.Middleware)

	registerCatalogRoutes(api, d)
	registerOrderRoutes(api, d)
	RegisterCrusherRoutes(api, d)
	RegisterReportRoutes(api, d)

	return r
}

func registerCatalogRoutes(api *mux.Router, d Deps) {
	h := handlers.NewCatalogHandler(d.Materials, d.Parties, d.Logger)
	write := d.Auth.RequirePermission(utils.PermCatalogWrite)

	api.HandleFunc("/materials", h.ListMaterials).Methods("GET")
	api.Handle("/materials", write(http.HandlerFunc(h.CreateMaterial))).Methods("POST")
	api.HandleFunc("/materials/{id}", h.GetMaterial).Methods("GET")

	api.HandleFunc("/customers", h.ListCustomers).Methods("GET")
	api.Handle("/customers", write(http.HandlerFunc(h.CreateCustomer))).Methods("POST")
	api.HandleFunc("/customers/{id}", h.GetCustomer).Methods("GET")

	api.HandleFunc("/vendors", h.ListVendors).Methods("GET")
	api.Handle("/vendors", write(http.HandlerFunc(h.CreateVendor))).Methods("POST")
	api.HandleFunc("/vendors/{id}", h.GetVendor).Methods("GET")
}

func registerOrderRoutes(api *mux.Router, d Deps) {
	h := handlers.NewOrderHandler(d.Orders, d.Logger)
	write := d.Auth.RequirePermission(utils.PermOrderWrite)

	api.HandleFunc("/orders/sales", h.ListSalesOrders).Methods("GET")
	api.Handle("/orders/sales", write(http.HandlerFunc(h.CreateSalesOrder))).Methods("POST")
	api.HandleFunc("/orders/sales/{id}", h.GetSalesOrder).Methods("GET")
	api.HandleFunc("/orders/sales/{id}/fulfillment", h.SalesOrderFulfillment).Methods("GET")

	api.HandleFunc("/orders/purchase", h.ListPurchaseOrders).Methods("GET")
	api.Handle("/orders/purchase", write(http.HandlerFunc(h.CreatePurchaseOrder))).Methods("POST")
	api.HandleFunc("/orders/purchase/{id}", h.GetPurchaseOrder).Methods("GET")
	api.HandleFunc("/orders/purchase/{id}/fulfillment", h.PurchaseOrderFulfillment).Methods("GET")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "route not found"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
}
