package feedsynchttp

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the feed sync endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Post("/sales-lines", h.handleSalesLines)
	r.Post("/profitability", h.handleProfitability)
	r.Post("/budgets", h.handleBudgets)
	r.Delete("/sales-lines", h.handleDelete)
	r.Delete("/profitability", h.handleDeleteProfitability)
}
