package mappings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AuditPort records mapping changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service resolves fixed ledger accounts by module and key.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the mapping service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// Get returns the mapping for module and key.
func (s *Service) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	module, key = Normalize(module, key)
	m, err := s.repo.Get(ctx, module, key)
	if errors.Is(err, shared.ErrMappingNotFound) {
		return AccountMapping{}, shared.Unresolved(shared.ErrMappingNotFound, "account mapping", module+"/"+key)
	}
	return m, err
}

// AccountID is Get narrowed to the mapped account.
func (s *Service) AccountID(ctx context.Context, module, key string) (int64, error) {
	m, err := s.Get(ctx, module, key)
	if err != nil {
		return 0, err
	}
	return m.AccountID, nil
}

// List returns every mapping.
func (s *Service) List(ctx context.Context) ([]AccountMapping, error) {
	return s.repo.List(ctx)
}

// Upsert points module/key at accountID.
func (s *Service) Upsert(ctx context.Context, module, key string, accountID, actorID int64) (AccountMapping, error) {
	module, key = Normalize(module, key)
	if module == "" {
		return AccountMapping{}, shared.Invalid(shared.ErrMissingField, "module", module)
	}
	if key == "" {
		return AccountMapping{}, shared.Invalid(shared.ErrMissingField, "key", key)
	}
	if accountID <= 0 {
		return AccountMapping{}, shared.Invalid(shared.ErrMissingField, "account_id", accountID)
	}
	m, err := s.repo.Upsert(ctx, AccountMapping{Module: module, Key: key, AccountID: accountID})
	if err != nil {
		if errors.Is(err, shared.ErrAccountNotFound) {
			return AccountMapping{}, shared.Unresolved(shared.ErrAccountNotFound, "account", accountID)
		}
		return AccountMapping{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "mapping.upsert",
			Entity:   "account_mapping",
			EntityID: module + "/" + key,
			Meta:     map[string]any{"account_id": fmt.Sprintf("%d", accountID)},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit mapping change", slog.Any("error", err))
		}
	}
	return m, nil
}
