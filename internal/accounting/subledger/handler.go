package subledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes customer sub-accounts over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sub-ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{customerID}/account", h.get)
	r.Post("/{customerID}/account", h.open)
	r.Put("/{customerID}/account", h.link)
}

type openRequest struct {
	Name string `json:"name" validate:"max=160"`
	Code string `json:"code" validate:"max=32"`
}

type linkRequest struct {
	AccountID int64 `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.List(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"links": links})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.PathInt64(chi.URLParam(r, "customerID"), "customer id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	link, err := h.service.Get(r.Context(), customerID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, link)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	customerID, err := httpx.PathInt64(chi.URLParam(r, "customerID"), "customer id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req openRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
	}
	out, err := h.service.OpenCustomerAccount(r.Context(), OpenInput{
		CustomerID: customerID,
		Name:       req.Name,
		Code:       req.Code,
		ActorID:    actorID,
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, out)
}

func (h *Handler) link(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	customerID, err := httpx.PathInt64(chi.URLParam(r, "customerID"), "customer id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req linkRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out, err := h.service.LinkAccount(r.Context(), customerID, req.AccountID, actorID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}
