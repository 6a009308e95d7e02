package feedsynchttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marginview/marginview/internal/feedsync"
	"github.com/marginview/marginview/internal/reports"
)

type mockSyncService struct {
	salesBatch  []reports.SalesLine
	result      feedsync.SyncResult
	deletedYear int
	rangeFrom   time.Time
	rangeTo     time.Time
	deletedAll  bool
	profitYear  int
}

func (m *mockSyncService) SyncSalesLines(ctx context.Context, batch []reports.SalesLine) feedsync.SyncResult {
	m.salesBatch = batch
	return m.result
}

func (m *mockSyncService) SyncProfitabilityLines(ctx context.Context, batch []reports.ProfitabilityLine) feedsync.SyncResult {
	return m.result
}

func (m *mockSyncService) SyncBudgets(ctx context.Context, batch []reports.Budget) feedsync.SyncResult {
	return m.result
}

func (m *mockSyncService) DeleteYear(ctx context.Context, year int) feedsync.SyncResult {
	m.deletedYear = year
	return m.result
}

func (m *mockSyncService) DeleteRange(ctx context.Context, from, to time.Time) feedsync.SyncResult {
	m.rangeFrom, m.rangeTo = from, to
	return m.result
}

func (m *mockSyncService) DeleteAll(ctx context.Context) feedsync.SyncResult {
	m.deletedAll = true
	return m.result
}

func (m *mockSyncService) DeleteProfitabilityYear(ctx context.Context, year int) feedsync.SyncResult {
	m.profitYear = year
	return m.result
}

func newTestRouter(svc *mockSyncService) http.Handler {
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/sync", h.MountRoutes)
	return r
}

func okResult() feedsync.SyncResult {
	return feedsync.SyncResult{BatchID: "b1", Success: true, Count: 1}
}

func TestSyncSalesLinesAccepted(t *testing.T) {
	svc := &mockSyncService{result: okResult()}
	router := newTestRouter(svc)

	body := `{"lines":[{"transaction_id":"T1","line_id":"1","date":"2025-03-01T00:00:00Z","year":2025,"month":3,"revenue":100}]}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/sales-lines", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if len(svc.salesBatch) != 1 || svc.salesBatch[0].TransactionID != "T1" {
		t.Fatalf("batch not forwarded: %+v", svc.salesBatch)
	}

	var result feedsync.SyncResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !result.Success || result.BatchID != "b1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSyncSalesLinesRejectsEmptyBatch(t *testing.T) {
	router := newTestRouter(&mockSyncService{result: okResult()})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/sales-lines", strings.NewReader(`{"lines":[]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSyncSalesLinesRejectsBadMonth(t *testing.T) {
	svc := &mockSyncService{result: okResult()}
	router := newTestRouter(svc)

	body := `{"lines":[{"transaction_id":"T1","line_id":"1","date":"2025-03-01T00:00:00Z","year":2025,"month":13}]}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/sales-lines", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if svc.salesBatch != nil {
		t.Fatal("invalid batch must not reach the service")
	}
}

func TestSyncSalesLinesRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter(&mockSyncService{result: okResult()})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/sales-lines", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestBackendFailureRespondsBadGateway(t *testing.T) {
	svc := &mockSyncService{result: feedsync.SyncResult{BatchID: "b1", Error: "backend down"}}
	router := newTestRouter(svc)

	body := `{"lines":[{"transaction_id":"T1","line_id":"1","date":"2025-03-01T00:00:00Z","year":2025,"month":3}]}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/sales-lines", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestKeyConflictRespondsConflict(t *testing.T) {
	svc := &mockSyncService{result: feedsync.SyncResult{BatchID: "b1", Conflict: true, Error: "duplicate key"}}
	router := newTestRouter(svc)

	body := `{"lines":[{"transaction_id":"T1","line_id":"1","date":"2025-03-01T00:00:00Z","year":2025,"month":3}]}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/sales-lines", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestDeleteByYear(t *testing.T) {
	svc := &mockSyncService{result: okResult()}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/sales-lines?year=2024", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if svc.deletedYear != 2024 {
		t.Fatalf("year not forwarded: %d", svc.deletedYear)
	}
}

func TestDeleteByRange(t *testing.T) {
	svc := &mockSyncService{result: okResult()}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/sales-lines?from=2024-03-01&to=2024-06-30", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if svc.rangeFrom.IsZero() || svc.rangeTo.IsZero() {
		t.Fatal("range not forwarded")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/sales-lines?from=2024-06-30&to=2024-03-01", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("inverted range must be rejected, got %d", rr.Code)
	}
}

func TestDeleteProfitabilityRequiresYear(t *testing.T) {
	svc := &mockSyncService{result: okResult()}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/profitability", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing year must be rejected, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/profitability?year=2023", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if svc.profitYear != 2023 {
		t.Fatalf("year not forwarded: %d", svc.profitYear)
	}
}

func TestDeleteAllRequiresExplicitFlag(t *testing.T) {
	svc := &mockSyncService{result: okResult()}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/sales-lines", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bare delete must be rejected, got %d", rr.Code)
	}
	if svc.deletedAll {
		t.Fatal("delete-all must not run without the flag")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sync/sales-lines?all=true", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !svc.deletedAll {
		t.Fatal("delete-all flag not honoured")
	}
}
