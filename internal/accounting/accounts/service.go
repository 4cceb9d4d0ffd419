package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AuditPort records chart of accounts changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ChangeNotifier is told about every committed write so cached reports expire.
type ChangeNotifier interface {
	Bump(ctx context.Context) error
}

// Service administers the chart of accounts.
type Service struct {
	repo     Repository
	audit    AuditPort
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the account registry.
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

// List returns every account ordered by code.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Get loads a single account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	acc, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return Account{}, shared.Unresolved(shared.ErrAccountNotFound, "account", id)
	}
	return acc, err
}

// GetByCode loads a single account by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	acc, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return Account{}, shared.Unresolved(shared.ErrAccountNotFound, "account", code)
	}
	return acc, err
}

// ListHierarchy returns the chart as a forest ordered by code at every level.
func (s *Service) ListHierarchy(ctx context.Context) ([]*Node, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewTree(accounts).Roots(), nil
}

// Create registers a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	acc, err := in.account()
	if err != nil {
		return Account{}, err
	}
	if err := s.ensureCodeFree(ctx, acc.Code, 0); err != nil {
		return Account{}, err
	}
	if acc.ParentID != nil {
		parent, err := s.repo.Get(ctx, *acc.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return Account{}, shared.Unresolved(shared.ErrInvalidParent, "parent account", *acc.ParentID)
			}
			return Account{}, err
		}
		s.warnTypeMismatch(parent, acc)
	}
	created, err := s.repo.Insert(ctx, acc)
	if err != nil {
		return Account{}, s.translate(err, acc)
	}
	s.afterWrite(ctx, in.ActorID, "account.create", created, map[string]any{
		"code": created.Code,
		"type": string(created.Type),
	})
	return created, nil
}

// Update changes code, name, type or parent of an account.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Account, error) {
	current, err := s.Get(ctx, in.ID)
	if err != nil {
		return Account{}, err
	}
	next := current
	if in.Code != nil {
		code, err := normalizeCode(*in.Code)
		if err != nil {
			return Account{}, err
		}
		if code != current.Code {
			if err := s.ensureCodeFree(ctx, code, current.ID); err != nil {
				return Account{}, err
			}
		}
		next.Code = code
	}
	if in.Name != nil {
		name, err := normalizeName(*in.Name)
		if err != nil {
			return Account{}, err
		}
		next.Name = name
	}
	if in.Type != nil {
		typ, err := ParseAccountType(string(*in.Type))
		if err != nil {
			return Account{}, err
		}
		next.Type = typ
	}
	switch {
	case in.ClearParent:
		next.ParentID = nil
	case in.ParentID != nil:
		parentID := *in.ParentID
		next.ParentID = &parentID
	}
	if next.ParentID != nil {
		if err := s.checkParent(ctx, next); err != nil {
			return Account{}, err
		}
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Account{}, s.translate(err, next)
	}
	s.afterWrite(ctx, in.ActorID, "account.update", updated, map[string]any{
		"code":      updated.Code,
		"prev_code": current.Code,
	})
	return updated, nil
}

// Deactivate hides an account from new postings. Its history stays intact.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) (Account, error) {
	return s.setActive(ctx, id, actorID, false)
}

// Activate undoes a deactivation.
func (s *Service) Activate(ctx context.Context, id, actorID int64) (Account, error) {
	return s.setActive(ctx, id, actorID, true)
}

func (s *Service) setActive(ctx context.Context, id, actorID int64, active bool) (Account, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if acc.IsActive == active {
		return acc, nil
	}
	acc.IsActive = active
	updated, err := s.repo.Update(ctx, acc)
	if err != nil {
		return Account{}, s.translate(err, acc)
	}
	action := "account.deactivate"
	if active {
		action = "account.activate"
	}
	s.afterWrite(ctx, actorID, action, updated, map[string]any{"code": updated.Code})
	return updated, nil
}

// Delete removes an account nothing references.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	usage, err := s.repo.Usage(ctx, id)
	if err != nil {
		return err
	}
	if usage.InUse() {
		return &shared.AccountInUseError{Code: acc.Code, Lines: usage.Lines, Children: usage.Children + usage.Links}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrAccountInUse) {
			return &shared.AccountInUseError{Code: acc.Code}
		}
		return err
	}
	s.afterWrite(ctx, actorID, "account.delete", acc, map[string]any{"code": acc.Code})
	return nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code string, selfID int64) error {
	existing, err := s.repo.GetByCode(ctx, code)
	switch {
	case err == nil && existing.ID != selfID:
		return shared.Invalid(shared.ErrDuplicateCode, "code", code)
	case err == nil, errors.Is(err, shared.ErrAccountNotFound):
		return nil
	default:
		return err
	}
}

// checkParent rejects unknown parents and re-parenting into the account's own subtree.
func (s *Service) checkParent(ctx context.Context, acc Account) error {
	parentID := *acc.ParentID
	if parentID == acc.ID {
		return shared.Invalid(shared.ErrInvalidParent, "parent_id", parentID)
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	tree := NewTree(all)
	parent, ok := tree.Node(parentID)
	if !ok {
		return shared.Unresolved(shared.ErrInvalidParent, "parent account", parentID)
	}
	if tree.IsDescendant(acc.ID, parentID) {
		return shared.Invalid(shared.ErrInvalidParent, "parent_id", parent.Code)
	}
	s.warnTypeMismatch(parent.Account, acc)
	return nil
}

func (s *Service) warnTypeMismatch(parent, child Account) {
	if parent.Type == child.Type {
		return
	}
	s.logger.Warn("account type differs from parent",
		slog.String("code", child.Code),
		slog.String("type", string(child.Type)),
		slog.String("parent_code", parent.Code),
		slog.String("parent_type", string(parent.Type)),
	)
}

func (s *Service) translate(err error, acc Account) error {
	switch {
	case errors.Is(err, shared.ErrDuplicateCode):
		return shared.Invalid(shared.ErrDuplicateCode, "code", acc.Code)
	case errors.Is(err, shared.ErrInvalidParent):
		return shared.Unresolved(shared.ErrInvalidParent, "parent account", derefID(acc.ParentID))
	case errors.Is(err, shared.ErrAccountNotFound):
		return shared.Unresolved(shared.ErrAccountNotFound, "account", acc.ID)
	}
	return err
}

func (s *Service) afterWrite(ctx context.Context, actorID int64, action string, acc Account, meta map[string]any) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", acc.ID),
			Meta:     meta,
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit account change", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
