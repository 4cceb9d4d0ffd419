package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes the journal store over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers journal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/reverse", h.reverse)
}

type lineRequest struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

type referenceRequest struct {
	Type string `json:"type" validate:"required"`
	ID   int64  `json:"id" validate:"required,gt=0"`
}

type sourceRequest struct {
	Module string `json:"module" validate:"required"`
	Ref    string `json:"ref" validate:"required,uuid"`
}

type postRequest struct {
	EntryDate     string            `json:"entry_date" validate:"required"`
	Description   string            `json:"description" validate:"required,max=255"`
	VoucherNumber string            `json:"voucher_number" validate:"max=32"`
	Reference     *referenceRequest `json:"reference"`
	Source        *sourceRequest    `json:"source"`
	Lines         []lineRequest     `json:"lines" validate:"required,dive"`
}

type reverseRequest struct {
	TargetDate  string `json:"target_date"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter ListFilter
	if raw := q.Get("from"); raw != "" {
		from, err := shared.ParseDate("from", raw)
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := shared.ParseDate("to", raw)
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		filter.To = &to
	}
	if raw := q.Get("account_id"); raw != "" {
		id, err := httpx.PathInt64(raw, "account_id")
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		filter.AccountID = id
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	entries, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "pagination": page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "entry id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req postRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	in, err := req.input(actorID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	entry, err := h.service.PostEntry(r.Context(), in)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (req postRequest) input(actorID int64) (PostingInput, error) {
	date, err := shared.ParseDate("entry_date", req.EntryDate)
	if err != nil {
		return PostingInput{}, err
	}
	in := PostingInput{
		EntryDate:     date,
		Description:   req.Description,
		VoucherNumber: req.VoucherNumber,
		ActorID:       actorID,
		Lines:         make([]PostingLineInput, len(req.Lines)),
	}
	for i, line := range req.Lines {
		in.Lines[i] = PostingLineInput{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit}
	}
	if req.Reference != nil {
		if in.Reference, err = ParseReference(req.Reference.Type, req.Reference.ID); err != nil {
			return PostingInput{}, err
		}
	}
	if req.Source != nil {
		ref, err := uuid.Parse(req.Source.Ref)
		if err != nil {
			return PostingInput{}, shared.Invalid(shared.ErrValidation, "source.ref", req.Source.Ref)
		}
		in.Source = &SourceKey{Module: req.Source.Module, Ref: ref}
	}
	return in, nil
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "entry id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req reverseRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
	}
	in := ReverseInput{EntryID: id, ActorID: actorID, Description: req.Description}
	if req.TargetDate != "" {
		var target time.Time
		if target, err = shared.ParseDate("target_date", req.TargetDate); err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		in.TargetDate = &target
	}
	entry, err := h.service.ReverseEntry(r.Context(), in)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}
