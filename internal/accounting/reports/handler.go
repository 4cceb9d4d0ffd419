package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// Handler exposes balances, statements and the trial balance over JSON.
type Handler struct {
	logger    *slog.Logger
	engine    *ledger.Engine
	generator *Generator
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, engine *ledger.Engine, generator *Generator) *Handler {
	return &Handler{logger: logger, engine: engine, generator: generator}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{id}/balance", h.balance)
	r.Get("/accounts/{id}/movement", h.movement)
	r.Get("/accounts/{id}/statement", h.statement)
	r.Get("/customers/{customerID}/statement", h.customerStatement)
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/profit-loss", h.profitAndLoss)
	r.Get("/balance-sheet", h.balanceSheet)
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := shared.ParseDate("start_date", r.URL.Query().Get("start_date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := shared.ParseDate("end_date", r.URL.Query().Get("end_date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	asOf, err := shared.ParseDate("as_of", r.URL.Query().Get("as_of"))
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	recursive := httpx.QueryBool(r, "recursive")
	bal, err := h.engine.BalanceAsOf(r.Context(), id, asOf, recursive)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"as_of":      asOf.Format(shared.DateLayout),
		"recursive":  recursive,
		"balance":    bal,
	})
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	recursive := httpx.QueryBool(r, "recursive")
	m, err := h.engine.MovementBetween(r.Context(), id, start, end, recursive)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"start_date": start.Format(shared.DateLayout),
		"end_date":   end.Format(shared.DateLayout),
		"recursive":  recursive,
		"debit":      m.Debit,
		"credit":     m.Credit,
	})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "account id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	st, err := h.generator.GenerateStatement(r.Context(), id, start, end, httpx.QueryBool(r, "recursive"))
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) customerStatement(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.PathInt64(chi.URLParam(r, "customerID"), "customer id")
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	st, err := h.generator.CustomerStatement(r.Context(), customerID, start, end)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	tb, err := h.generator.TrialBalance(r.Context(), start, end)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	pl, err := h.generator.ProfitAndLoss(r.Context(), start, end)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := shared.ParseDate("as_of", r.URL.Query().Get("as_of"))
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	bs, err := h.generator.BalanceSheet(r.Context(), asOf)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}
