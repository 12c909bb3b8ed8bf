package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/crusher/handlers"
	"p9e.in/crusher/utils"
)

// RegisterCrusherRoutes registers production run and dispatch routes
func RegisterCrusherRoutes(api *mux.Router, d Deps) {
	runs := handlers.NewRunHandler(d.Runs, d.Logger)
	dispatches := handlers.NewDispatchHandler(d.Dispatches, d.Logger)
	write := d.Auth.RequirePermission(utils.PermCrusherWrite)

	c := api.PathPrefix("/crusher").Subrouter()

	// Production runs
	c.HandleFunc("/runs", runs.ListRuns).Methods("GET")
	c.Handle("/runs", write(http.HandlerFunc(runs.CreateRun))).Methods("POST")
	c.HandleFunc("/runs/{id}", runs.GetRun).Methods("GET")
	c.Handle("/runs/{id}", write(http.HandlerFunc(runs.UpdateRun))).Methods("PUT")
	c.HandleFunc("/runs/{id}/available", runs.Available).Methods("GET")
	c.Handle("/runs/{id}/reconcile", d.Auth.RequirePermission(utils.PermCrusherReconcile)(
		http.HandlerFunc(runs.Reconcile))).Methods("POST")

	// Dispatches
	c.HandleFunc("/dispatches", dispatches.ListDispatches).Methods("GET")
	c.Handle("/dispatches", write(http.HandlerFunc(dispatches.CreateDispatch))).Methods("POST")
	c.HandleFunc("/dispatches/{id}", dispatches.GetDispatch).Methods("GET")
	c.Handle("/dispatches/{id}", write(http.HandlerFunc(dispatches.UpdateDispatch))).Methods("PATCH")
	c.Handle("/dispatches/{id}/cancel", write(http.HandlerFunc(dispatches.CancelDispatch))).Methods("POST")
	c.Handle("/dispatches/{id}/documents", write(http.HandlerFunc(dispatches.UploadDocument))).Methods("POST")
}
