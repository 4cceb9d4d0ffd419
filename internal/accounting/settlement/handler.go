package settlement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes the settlement workflow over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers settlement routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.settle)
}

type settleRequest struct {
	PlatformAccountID int64           `json:"platform_account_id" validate:"required,gt=0"`
	BankAccountID     int64           `json:"bank_account_id" validate:"required,gt=0"`
	Gross             decimal.Decimal `json:"gross_amount"`
	Commission        decimal.Decimal `json:"commission_amount"`
	Date              string          `json:"date" validate:"required"`
	SettlementID      int64           `json:"settlement_id" validate:"omitempty,gt=0"`
	VoucherNumber     string          `json:"voucher_number" validate:"max=64"`
	Description       string          `json:"description" validate:"max=255"`
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req settleRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	date, err := shared.ParseDate("date", req.Date)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	entry, err := h.service.SettlePlatformBalance(r.Context(), Input{
		PlatformAccountID:   req.PlatformAccountID,
		TargetBankAccountID: req.BankAccountID,
		Gross:               req.Gross,
		Commission:          req.Commission,
		Date:                date,
		SettlementID:        req.SettlementID,
		VoucherNumber:       req.VoucherNumber,
		Description:         req.Description,
		ActorID:             actorID,
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}
