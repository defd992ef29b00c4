package api

import (
	"net/http"
)

// RegisterRoutes регистрирует маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	middlewares := []Middleware{Recovery(h.logger), Logging(h.logger)}
	if h.requests != nil {
		middlewares = append(middlewares, Instrument(h.requests))
	}
	chain := Chain(middlewares...)

	// Tasks
	if h.registry != nil {
		mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
	}
	if h.kicker != nil {
		mux.Handle("POST /api/v1/tasks/{name}/kick", chain(http.HandlerFunc(h.KickTask)))
	}

	// Results
	if h.results != nil {
		mux.Handle("GET /api/v1/results/{id}", chain(http.HandlerFunc(h.GetResult)))
	}

	// Schedules
	if h.schedules != nil {
		mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	}
}
