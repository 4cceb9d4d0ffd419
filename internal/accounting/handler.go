package accounting

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/settlement"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
)

// MountRoutes registers every ledger endpoint on r.
func (l *Ledger) MountRoutes(r chi.Router) {
	r.Route("/accounts", accounts.NewHandler(l.logger, l.Accounts).MountRoutes)
	r.Route("/periods", periods.NewHandler(l.logger, l.Periods).MountRoutes)
	r.Route("/journals", journals.NewHandler(l.logger, l.Journals).MountRoutes)
	r.Route("/mappings", mappings.NewHandler(l.logger, l.Mappings).MountRoutes)
	r.Route("/customers", subledger.NewHandler(l.logger, l.Subledger).MountRoutes)
	r.Route("/reports", reports.NewHandler(l.logger, l.Engine, l.Reports).MountRoutes)
	r.Route("/settlements", settlement.NewHandler(l.logger, l.Settlement).MountRoutes)
}

// MountEvents registers the upstream event intake.
func (l *Ledger) MountEvents(r chi.Router) {
	integration.NewHandler(l.logger, l.Hooks, l.queue).MountRoutes(r)
}
