// Package reportshttp serves the aggregated report API.
package reportshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marginview/marginview/internal/platform/httpx"
	"github.com/marginview/marginview/internal/reports"
)

const requestTimeout = 30 * time.Second

// ReportService defines the data contract used by the handler.
type ReportService interface {
	Summary(ctx context.Context, dim reports.Dimension, f reports.LineFilter) (reports.Report, error)
	Trend(ctx context.Context, dim reports.Dimension, f reports.LineFilter) (reports.Report, error)
	Comparison(ctx context.Context, dim reports.Dimension, f reports.LineFilter) (reports.ComparisonReport, error)
	Profitability(ctx context.Context, years []int) (reports.Report, error)
	BudgetVariance(ctx context.Context, year int, dim reports.Dimension, thresholdAmount, thresholdPercent *float64) (reports.VarianceReport, error)
	FilterCatalog(ctx context.Context) (reports.FilterCatalog, error)
}

// Handler menangani permintaan API laporan penjualan.
type Handler struct {
	logger  *slog.Logger
	service ReportService
}

// NewHandler membuat instance handler laporan baru.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleClasses(w http.ResponseWriter, r *http.Request) {
	h.summary(w, r, reports.DimClass)
}

func (h *Handler) handleCustomers(w http.ResponseWriter, r *http.Request) {
	h.summary(w, r, reports.DimCustomer)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request, dim reports.Dimension) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Summary(ctx, dim, filter)
	if err != nil {
		h.respondError(w, "summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	dim, err := parseDim(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Dimension", err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Trend(ctx, dim, filter)
	if err != nil {
		h.respondError(w, "trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleComparison(w http.ResponseWriter, r *http.Request) {
	dim, err := parseDim(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Dimension", err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Comparison(ctx, dim, filter)
	if err != nil {
		h.respondError(w, "comparison", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleProfitability(w http.ResponseWriter, r *http.Request) {
	years, err := parseIntList(r.URL.Query().Get("years"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Profitability(ctx, years)
	if err != nil {
		h.respondError(w, "profitability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleVariance(w http.ResponseWriter, r *http.Request) {
	dim, err := parseDim(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Dimension", err.Error())
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "year is required")
		return
	}
	thresholdAmount := parseOptionalFloat(r.URL.Query().Get("threshold_amount"))
	thresholdPercent := parseOptionalFloat(r.URL.Query().Get("threshold_percent"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.BudgetVariance(ctx, year, dim, thresholdAmount, thresholdPercent)
	if err != nil {
		h.respondError(w, "variance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	catalog, err := h.service.FilterCatalog(ctx)
	if err != nil {
		h.respondError(w, "filters", err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reports.ErrInvalidMonth),
		errors.Is(err, reports.ErrInvalidYear),
		errors.Is(err, reports.ErrInvalidDim):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "report computation cancelled")
	default:
		h.logger.Error("report request failed", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseDim(r *http.Request) (reports.Dimension, error) {
	raw := r.URL.Query().Get("dim")
	if raw == "" {
		return reports.DimClass, nil
	}
	dim := reports.Dimension(raw)
	if err := dim.Validate(); err != nil {
		return "", err
	}
	return dim, nil
}

func parseFilter(r *http.Request) (reports.LineFilter, error) {
	q := r.URL.Query()
	years, err := parseIntList(q.Get("years"))
	if err != nil {
		return reports.LineFilter{}, err
	}
	months, err := parseIntList(q.Get("months"))
	if err != nil {
		return reports.LineFilter{}, err
	}
	f := reports.LineFilter{
		Years:      years,
		Months:     months,
		ClassID:    q.Get("class"),
		CustomerID: q.Get("customer"),
	}
	return f, f.Validate()
}

func parseIntList(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseOptionalFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
