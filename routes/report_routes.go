package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/crusher/handlers"
	"p9e.in/crusher/utils"
)

// RegisterReportRoutes registers the delivery report routes
func RegisterReportRoutes(api *mux.Router, d Deps) {
	h := handlers.NewReportHandler(d.Reports, d.Logger)
	read := d.Auth.RequirePermission(utils.PermReportRead)

	api.Handle("/reports/deliveries", read(http.HandlerFunc(h.Deliveries))).Methods("GET")
	api.Handle("/reports/deliveries/export", read(http.HandlerFunc(h.ExportDeliveries))).Methods("GET")
}
