package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsHandlerExposesLedgerMetrics(t *testing.T) {
	metrics := NewMetrics()
	ledger := metrics.Ledger()
	ledger.PostingRecorded("INVOICE")
	ledger.PostingRejected("period_closed")
	ledger.IntegrityFailed()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`ledger_postings_total{kind="INVOICE"} 1`,
		`ledger_postings_rejected_total{reason="period_closed"} 1`,
		`ledger_integrity_failures_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %s, got: %s", want, body)
		}
	}
}

func TestNilLedgerMetricsIsNoop(t *testing.T) {
	var metrics *Metrics
	m := metrics.Ledger()
	if m != nil {
		t.Fatalf("expected nil ledger metrics from nil registry")
	}
	m.PostingRecorded("MANUAL")
	m.PostingRejected("validation")
	m.IntegrityFailed()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/accounting/journals")

	req := httptest.NewRequest(http.MethodGet, "/accounting/journals", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metricsRR.Body.String()
	if !strings.Contains(body, `ledger_http_requests_total{code="418",route="/accounting/journals"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `ledger_http_request_duration_seconds_bucket{route="/accounting/journals"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}
