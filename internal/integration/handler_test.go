package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	envelopes []Envelope
}

func (q *stubQueue) EnqueueEvent(_ context.Context, env Envelope) error {
	q.envelopes = append(q.envelopes, env)
	return nil
}

func serve(h *Handler, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Route("/ledger/events", h.MountRoutes)
	req := httptest.NewRequest(http.MethodPost, "/ledger/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerPostsInline(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(nil, f.hooks, nil)

	rec := serve(h, `{"type":"payment.recorded","payload":{"payment_id":5,"amount":"120.50","method":"cash","date":"2024-06-01"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, EventPaymentRecorded, out.Type)
	require.NotZero(t, out.EntryID)

	rec = serve(h, `{"type":"payment.recorded","payload":{"payment_id":6,"amount":"10","method":"cash","date":"2023-06-01"}}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, `{"type":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerQueuesWhenConfigured(t *testing.T) {
	f := newFixture(t)
	queue := &stubQueue{}
	h := NewHandler(nil, f.hooks, queue)

	rec := serve(h, `{"type":"booking.created","payload":{"booking_id":1,"customer_id":3,"amount":"400","date":"2024-06-01"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.envelopes, 1)
	require.Equal(t, EventBookingCreated, queue.envelopes[0].Type)
	require.NotEqual(t, [16]byte{}, [16]byte(queue.envelopes[0].ID))
	require.Empty(t, f.drafter.drafts)
}
