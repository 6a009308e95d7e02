package reportshttp

import "github.com/go-chi/chi/v5"

// MountRoutes mendaftarkan endpoint API laporan.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/classes", h.handleClasses)
	r.Get("/customers", h.handleCustomers)
	r.Get("/trend", h.handleTrend)
	r.Get("/comparison", h.handleComparison)
	r.Get("/profitability", h.handleProfitability)
	r.Get("/variance", h.handleVariance)
	r.Get("/filters", h.handleFilters)
}
