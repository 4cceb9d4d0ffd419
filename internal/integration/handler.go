package integration

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Enqueuer hands events to a background worker.
type Enqueuer interface {
	EnqueueEvent(ctx context.Context, env Envelope) error
}

// Handler accepts upstream events over HTTP.
type Handler struct {
	logger *slog.Logger
	hooks  *Hooks
	queue  Enqueuer
}

// NewHandler constructs a Handler. With a non-nil queue events are accepted
// asynchronously; otherwise they are posted inline.
func NewHandler(logger *slog.Logger, hooks *Hooks, queue Enqueuer) *Handler {
	return &Handler{logger: logger, hooks: hooks, queue: queue}
}

// MountRoutes registers the event intake route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.receive)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := httpx.DecodeJSON(r, &env); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if env.ID == uuid.Nil {
		env.ID = uuid.New()
	}
	if h.queue != nil {
		if err := h.queue.EnqueueEvent(r.Context(), env); err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"id": env.ID, "type": env.Type})
		return
	}
	out, err := h.hooks.Dispatch(r.Context(), env)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
