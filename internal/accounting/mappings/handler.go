package mappings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes account mappings over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers mapping routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/{module}/{key}", h.upsert)
}

type upsertRequest struct {
	AccountID int64 `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": items})
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req upsertRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	m, err := h.service.Upsert(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "key"), req.AccountID, actorID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}
