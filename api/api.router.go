package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/verdant-labs/greenhub/api/resources"
	"github.com/verdant-labs/greenhub/internal/config"
	"github.com/verdant-labs/greenhub/internal/service"
)

type Router struct {
	router    *mux.Router
	resources *resources.Resources
}

func NewRouter(svc *service.Service, cfg *config.Config) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc, cfg.MQTT),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	api := r.router.PathPrefix("/api").Subrouter()

	// Ingestion
	api.HandleFunc("/sensor/{greenhouse_id}", r.resources.Readings.InsertReading).Methods(http.MethodPost)
	api.HandleFunc("/realtime/{greenhouse_id}", r.resources.Readings.IngestRealtime).Methods(http.MethodPost)

	// Open-window snapshot for the dashboard's realtime chart
	api.HandleFunc("/realtime/{greenhouse_id}", r.resources.Readings.GetRealtimeSnapshot).Methods(http.MethodGet)

	// Greenhouses
	api.HandleFunc("/greenhouses", r.resources.Greenhouses.ListGreenhouses).Methods(http.MethodGet)
	api.HandleFunc("/greenhouses/history", r.resources.Greenhouses.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/greenhouses/history/latest", r.resources.Greenhouses.GetLatest).Methods(http.MethodGet)

	// Dashboard config
	api.HandleFunc("/config", r.resources.Greenhouses.GetConfig).Methods(http.MethodGet)
}

// SetHealthCheck wires the health handler after construction.
func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
	r.router.HandleFunc("/health", h).Methods(http.MethodGet)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
