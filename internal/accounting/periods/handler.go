package periods

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes the period guard over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers period routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.open)
	r.Get("/check", h.check)
	r.Get("/{id}", h.get)
	r.Post("/{id}/close", h.close)
	r.Post("/{id}/reopen", h.reopen)
}

type openRequest struct {
	Name      string `json:"name" validate:"max=64"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "period id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	date, err := shared.ParseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	open, err := h.service.IsDateOpen(r.Context(), date)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"date": date.Format(shared.DateLayout), "open": open})
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req openRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	start, err := shared.ParseDate("start_date", req.StartDate)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	end, err := shared.ParseDate("end_date", req.EndDate)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.OpenPeriod(r.Context(), OpenInput{Name: req.Name, StartDate: start, EndDate: end, ActorID: actorID})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ClosePeriod)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ReopenPeriod)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64) (Period, error)) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "period id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	p, err := fn(r.Context(), id, actorID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
