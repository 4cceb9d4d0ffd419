package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/observability"
	_ "github.com/odyssey-erp/hotel-ledger/testing"
)

func TestLoadConfigValidatesStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", "Memory")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.LedgerStore)

	t.Setenv("LEDGER_STORE", "sqlite")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "unknown LEDGER_STORE")

	t.Setenv("LEDGER_STORE", "memory")
	t.Setenv("EVENTS_ASYNC", "true")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "REDIS_ADDR")
}

func TestRouterServesLedger(t *testing.T) {
	cfg := &Config{LedgerStore: StoreMemory, AppEnv: "test"}
	logger := NewLogger(cfg)
	metrics := observability.NewMetrics()
	rt, err := Open(context.Background(), cfg, logger, metrics, nil)
	require.NoError(t, err)
	defer rt.Close()
	require.Nil(t, rt.Cache)

	router := NewRouter(RouterParams{Logger: logger, Config: cfg, Ledger: rt.Ledger, Metrics: metrics})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodPost, "/accounting/accounts",
		strings.NewReader(`{"code":"1100","name":"Receivables","type":"asset"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// No period is open, so the posting is refused and counted.
	req = httptest.NewRequest(http.MethodPost, "/accounting/journals",
		strings.NewReader(`{"entry_date":"2024-03-01","description":"Room night","lines":[{"account_id":1,"debit":"10"},{"account_id":1,"credit":"10"}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.GreaterOrEqual(t, rec.Code, http.StatusBadRequest, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `ledger_http_requests_total{code="201"`)
	require.Contains(t, body, `ledger_postings_rejected_total{reason=`)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel("debug").String())
	require.Equal(t, "WARN", parseLevel("Warning").String())
	require.Equal(t, "INFO", parseLevel("").String())
}
