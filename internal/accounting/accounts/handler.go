package accounts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes the chart of accounts over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/deactivate", h.deactivate)
	r.Post("/{id}/activate", h.activate)
}

type createRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=160"`
	Type     string `json:"type" validate:"required"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type updateRequest struct {
	Code        *string `json:"code" validate:"omitempty,max=32"`
	Name        *string `json:"name" validate:"omitempty,max=160"`
	Type        *string `json:"type"`
	ParentID    *int64  `json:"parent_id" validate:"omitempty,gt=0"`
	ClearParent bool    `json:"clear_parent"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if httpx.QueryBool(r, "tree") {
		roots, err := h.service.ListHierarchy(r.Context())
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"accounts": roots})
		return
	}
	accounts, err := h.service.List(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	acc, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req createRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	acc, err := h.service.Create(r.Context(), CreateInput{
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		ParentID: req.ParentID,
		ActorID:  actorID,
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acc)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	in := UpdateInput{ID: id, Code: req.Code, Name: req.Name, ParentID: req.ParentID, ClearParent: req.ClearParent, ActorID: actorID}
	if req.Type != nil {
		typ := AccountType(*req.Type)
		in.Type = &typ
	}
	acc, err := h.service.Update(r.Context(), in)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Deactivate)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Activate)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64) (Account, error)) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	acc, err := fn(r.Context(), id, actorID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
