package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		RequireUser(h.auth),
	)

	// Plans
	mux.Handle("GET /api/v1/plans", chain(http.HandlerFunc(h.ListPlans)))
	mux.Handle("POST /api/v1/plans", chain(http.HandlerFunc(h.CreatePlan)))
	mux.Handle("GET /api/v1/plans/{id}", chain(http.HandlerFunc(h.GetPlan)))
	mux.Handle("PUT /api/v1/plans/{id}", chain(http.HandlerFunc(h.UpdatePlan)))
	mux.Handle("DELETE /api/v1/plans/{id}", chain(http.HandlerFunc(h.DeletePlan)))

	// Workflow
	mux.Handle("POST /api/v1/plans/{id}/advance", chain(http.HandlerFunc(h.AdvancePlan)))
	mux.Handle("POST /api/v1/plans/{id}/run", chain(http.HandlerFunc(h.RunPlan)))
	mux.Handle("POST /api/v1/plans/{id}/abandon", chain(http.HandlerFunc(h.AbandonPlan)))
}
