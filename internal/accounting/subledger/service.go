package subledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AuditPort records link changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ChangeNotifier is told about every new sub-account.
type ChangeNotifier interface {
	Bump(ctx context.Context) error
}

// OpenInput describes the customer a sub-account is opened for.
type OpenInput struct {
	CustomerID int64
	Name       string
	Code       string
	ActorID    int64
}

// Service maintains the customer to receivables sub-account mapping.
type Service struct {
	repo     Repository
	audit    AuditPort
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the sub-ledger service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNotifier registers the cache invalidation hook.
func (s *Service) WithNotifier(n ChangeNotifier) {
	s.notifier = n
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the link for a customer.
func (s *Service) Get(ctx context.Context, customerID int64) (Link, error) {
	link, err := s.repo.Get(ctx, customerID)
	if errors.Is(err, shared.ErrCustomerNotLinked) {
		return Link{}, shared.Unresolved(shared.ErrCustomerNotLinked, "customer", customerID)
	}
	return link, err
}

// Resolve returns the sub-account id postings for customerID must use.
func (s *Service) Resolve(ctx context.Context, customerID int64) (int64, error) {
	link, err := s.Get(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return link.AccountID, nil
}

// List returns every link ordered by customer.
func (s *Service) List(ctx context.Context) ([]Link, error) {
	return s.repo.List(ctx)
}

// OpenCustomerAccount creates the customer's receivables sub-account under the
// control account and links it in one transaction. Calling it again for a
// linked customer returns the existing account.
func (s *Service) OpenCustomerAccount(ctx context.Context, in OpenInput) (CustomerAccount, error) {
	if in.CustomerID <= 0 {
		return CustomerAccount{}, shared.Invalid(shared.ErrMissingField, "customer_id", in.CustomerID)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = fmt.Sprintf("Customer %d", in.CustomerID)
	}
	var out CustomerAccount
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if link, err := tx.GetLink(ctx, in.CustomerID); err == nil {
			acc, err := tx.GetAccount(ctx, link.AccountID)
			if err != nil {
				return err
			}
			out = CustomerAccount{Link: link, Account: acc}
			return nil
		} else if !errors.Is(err, shared.ErrCustomerNotLinked) {
			return err
		}
		control, err := s.control(ctx, tx)
		if err != nil {
			return err
		}
		code := strings.TrimSpace(in.Code)
		if code == "" {
			code = CustomerCode(control.Code, in.CustomerID)
		}
		parentID := control.ID
		acc, err := tx.InsertAccount(ctx, accounts.Account{
			Code:     code,
			Name:     name,
			Type:     control.Type,
			ParentID: &parentID,
			IsActive: true,
		})
		if err != nil {
			if errors.Is(err, shared.ErrDuplicateCode) {
				return shared.Invalid(shared.ErrDuplicateCode, "code", code)
			}
			return err
		}
		link, err := tx.InsertLink(ctx, Link{CustomerID: in.CustomerID, AccountID: acc.ID, CreatedAt: s.now()})
		if err != nil {
			return s.translateLink(err, in.CustomerID)
		}
		out = CustomerAccount{Link: link, Account: acc, Created: true}
		return nil
	})
	if err != nil {
		return CustomerAccount{}, err
	}
	if out.Created {
		s.logger.Info("customer sub-account opened",
			slog.Int64("customer_id", in.CustomerID),
			slog.String("code", out.Account.Code),
		)
		s.afterWrite(ctx, in.ActorID, "subledger.open", out)
	}
	return out, nil
}

// LinkAccount attaches an existing sub-account of the receivables control
// account to a customer.
func (s *Service) LinkAccount(ctx context.Context, customerID, accountID, actorID int64) (CustomerAccount, error) {
	if customerID <= 0 {
		return CustomerAccount{}, shared.Invalid(shared.ErrMissingField, "customer_id", customerID)
	}
	var out CustomerAccount
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetLink(ctx, customerID); err == nil {
			return shared.Invalid(shared.ErrCustomerAlreadyLinked, "customer_id", customerID)
		} else if !errors.Is(err, shared.ErrCustomerNotLinked) {
			return err
		}
		acc, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return shared.Unresolved(shared.ErrAccountNotFound, "account", accountID)
			}
			return err
		}
		control, err := s.control(ctx, tx)
		if err != nil {
			return err
		}
		if acc.ParentID == nil || *acc.ParentID != control.ID {
			return shared.Invalid(shared.ErrInvalidParent, "account_id", acc.Code)
		}
		if _, err := tx.LinkByAccount(ctx, accountID); err == nil {
			return shared.Invalid(shared.ErrCustomerAlreadyLinked, "account_id", acc.Code)
		} else if !errors.Is(err, shared.ErrCustomerNotLinked) {
			return err
		}
		link, err := tx.InsertLink(ctx, Link{CustomerID: customerID, AccountID: acc.ID, CreatedAt: s.now()})
		if err != nil {
			return s.translateLink(err, customerID)
		}
		out = CustomerAccount{Link: link, Account: acc, Created: true}
		return nil
	})
	if err != nil {
		return CustomerAccount{}, err
	}
	s.afterWrite(ctx, actorID, "subledger.link", out)
	return out, nil
}

func (s *Service) control(ctx context.Context, tx TxRepository) (accounts.Account, error) {
	control, err := tx.ControlAccount(ctx)
	switch {
	case errors.Is(err, shared.ErrMappingNotFound):
		return accounts.Account{}, shared.Unresolved(shared.ErrMappingNotFound, "account mapping",
			mappings.ModuleSubledger+"/"+mappings.KeyReceivablesControl)
	case errors.Is(err, shared.ErrAccountNotFound):
		return accounts.Account{}, shared.Unresolved(shared.ErrAccountNotFound, "receivables control account", mappings.KeyReceivablesControl)
	}
	return control, err
}

func (s *Service) translateLink(err error, customerID int64) error {
	if errors.Is(err, shared.ErrCustomerAlreadyLinked) {
		return shared.Invalid(shared.ErrCustomerAlreadyLinked, "customer_id", customerID)
	}
	return err
}

func (s *Service) afterWrite(ctx context.Context, actorID int64, action string, ca CustomerAccount) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "customer_account_link",
			EntityID: fmt.Sprintf("%d", ca.Link.CustomerID),
			Meta:     map[string]any{"account_id": ca.Account.ID, "code": ca.Account.Code},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit sub-ledger change", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
}
