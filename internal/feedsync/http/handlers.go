// Package feedsynchttp exposes sync and bulk-delete operations for the
// transaction feed collaborator.
package feedsynchttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marginview/marginview/internal/feedsync"
	"github.com/marginview/marginview/internal/platform/httpx"
	"github.com/marginview/marginview/internal/reports"
)

const requestTimeout = 60 * time.Second

// SyncService defines the ingestion contract used by the handler.
type SyncService interface {
	SyncSalesLines(ctx context.Context, batch []reports.SalesLine) feedsync.SyncResult
	SyncProfitabilityLines(ctx context.Context, batch []reports.ProfitabilityLine) feedsync.SyncResult
	SyncBudgets(ctx context.Context, batch []reports.Budget) feedsync.SyncResult
	DeleteYear(ctx context.Context, year int) feedsync.SyncResult
	DeleteRange(ctx context.Context, from, to time.Time) feedsync.SyncResult
	DeleteAll(ctx context.Context) feedsync.SyncResult
	DeleteProfitabilityYear(ctx context.Context, year int) feedsync.SyncResult
}

type salesLinesRequest struct {
	Lines []reports.SalesLine `json:"lines" validate:"required,min=1"`
}

type profitabilityRequest struct {
	Lines []reports.ProfitabilityLine `json:"lines" validate:"required,min=1"`
}

type budgetsRequest struct {
	Budgets []reports.Budget `json:"budgets" validate:"required,min=1"`
}

// Handler coordinates HTTP requests for feed ingestion.
type Handler struct {
	logger   *slog.Logger
	service  SyncService
	validate *validator.Validate
}

// NewHandler constructs a sync handler.
func NewHandler(logger *slog.Logger, service SyncService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) handleSalesLines(w http.ResponseWriter, r *http.Request) {
	var req salesLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := validateSalesLines(req.Lines); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	h.respond(w, h.service.SyncSalesLines(ctx, req.Lines))
}

func (h *Handler) handleProfitability(w http.ResponseWriter, r *http.Request) {
	var req profitabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	h.respond(w, h.service.SyncProfitabilityLines(ctx, req.Lines))
}

func (h *Handler) handleBudgets(w http.ResponseWriter, r *http.Request) {
	var req budgetsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	h.respond(w, h.service.SyncBudgets(ctx, req.Budgets))
}

// handleDelete prunes sales lines by year, by date range, or in full,
// depending on which query parameters are present.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch {
	case q.Get("year") != "":
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "year must be an integer")
			return
		}
		h.respond(w, h.service.DeleteYear(ctx, year))
	case q.Get("from") != "" && q.Get("to") != "":
		from, err := time.Parse("2006-01-02", q.Get("from"))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
			return
		}
		to, err := time.Parse("2006-01-02", q.Get("to"))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
			return
		}
		if to.Before(from) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to precedes from")
			return
		}
		h.respond(w, h.service.DeleteRange(ctx, from, to))
	case q.Get("all") == "true":
		h.respond(w, h.service.DeleteAll(ctx))
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "specify year, from/to, or all=true")
	}
}

func (h *Handler) handleDeleteProfitability(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "year must be an integer")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	h.respond(w, h.service.DeleteProfitabilityYear(ctx, year))
}

func (h *Handler) respond(w http.ResponseWriter, result feedsync.SyncResult) {
	switch {
	case result.Success:
		httpx.JSON(w, http.StatusOK, result)
	case result.Conflict:
		httpx.JSON(w, http.StatusConflict, result)
	default:
		httpx.JSON(w, http.StatusBadGateway, result)
	}
}

func validateSalesLines(lines []reports.SalesLine) error {
	for _, l := range lines {
		f := reports.LineFilter{Years: []int{l.Year}, Months: []int{l.Month}}
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
