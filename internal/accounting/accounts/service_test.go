package accounts

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type memoryRepo struct {
	accounts map[int64]Account
	lines    map[int64]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]Account), lines: make(map[int64]int64)}
}

func (r *memoryRepo) List(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return acc, nil
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (Account, error) {
	for _, acc := range r.accounts {
		if acc.Code == code {
			return acc, nil
		}
	}
	return Account{}, shared.ErrAccountNotFound
}

func (r *memoryRepo) Insert(ctx context.Context, acc Account) (Account, error) {
	r.nextID++
	acc.ID = r.nextID
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *memoryRepo) Update(ctx context.Context, acc Account) (Account, error) {
	if _, ok := r.accounts[acc.ID]; !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(r.accounts, id)
	return nil
}

func (r *memoryRepo) Usage(ctx context.Context, id int64) (Usage, error) {
	u := Usage{Lines: r.lines[id]}
	for _, acc := range r.accounts {
		if acc.ParentID != nil && *acc.ParentID == id {
			u.Children++
		}
	}
	return u, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingNotifier struct{ bumps int }

func (n *countingNotifier) Bump(ctx context.Context) error {
	n.bumps++
	return nil
}

func newTestService() (*Service, *memoryRepo, *recordingAudit, *countingNotifier) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	notifier := &countingNotifier{}
	svc := NewService(repo, audit, nil)
	svc.WithNotifier(notifier)
	svc.WithNow(func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) })
	return svc, repo, audit, notifier
}

func TestCreateAccount(t *testing.T) {
	svc, _, audit, notifier := newTestService()
	ctx := context.Background()

	parent, err := svc.Create(ctx, CreateInput{Code: "1100", Name: "Receivables", Type: "asset", ActorID: 7})
	require.NoError(t, err)
	require.True(t, parent.IsActive)
	require.Equal(t, AccountTypeAsset, parent.Type)

	child, err := svc.Create(ctx, CreateInput{Code: " 1101 ", Name: "Customer A", Type: AccountTypeAsset, ParentID: &parent.ID, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, "1101", child.Code)
	require.Equal(t, parent.ID, *child.ParentID)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "account.create", audit.logs[0].Action)
	require.Equal(t, int64(7), audit.logs[0].ActorID)
	require.Equal(t, 2, notifier.bumps)
}

func TestCreateAccountRejectsDuplicateCode(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "4000", Name: "Revenue", Type: AccountTypeRevenue})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "4000", Name: "Other", Type: AccountTypeRevenue})
	require.ErrorIs(t, err, shared.ErrDuplicateCode)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "4000")
}

func TestCreateAccountRejectsUnknownParent(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Code: "1101", Name: "Orphan", Type: AccountTypeAsset, ParentID: ptr(99)})
	require.ErrorIs(t, err, shared.ErrInvalidParent)
	require.ErrorIs(t, err, shared.ErrReference)
}

func TestCreateAccountValidatesInput(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "", Name: "x", Type: AccountTypeAsset})
	require.ErrorIs(t, err, shared.ErrMissingField)

	_, err = svc.Create(ctx, CreateInput{Code: "11 01", Name: "x", Type: AccountTypeAsset})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Code: "1101", Name: "x", Type: "income"})
	require.ErrorIs(t, err, shared.ErrInvalidAccountType)
}

func TestUpdateRejectsCycles(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateInput{Code: "1000", Name: "Assets", Type: AccountTypeAsset})
	require.NoError(t, err)
	mid, err := svc.Create(ctx, CreateInput{Code: "1100", Name: "Receivables", Type: AccountTypeAsset, ParentID: &root.ID})
	require.NoError(t, err)
	leaf, err := svc.Create(ctx, CreateInput{Code: "1101", Name: "Customer", Type: AccountTypeAsset, ParentID: &mid.ID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateInput{ID: root.ID, ParentID: &leaf.ID})
	require.ErrorIs(t, err, shared.ErrInvalidParent)

	_, err = svc.Update(ctx, UpdateInput{ID: mid.ID, ParentID: &mid.ID})
	require.ErrorIs(t, err, shared.ErrInvalidParent)

	name := "Guest Receivables"
	updated, err := svc.Update(ctx, UpdateInput{ID: mid.ID, Name: &name, ClearParent: true})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Nil(t, updated.ParentID)
}

func TestUpdateRejectsTakenCode(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	bank, err := svc.Create(ctx, CreateInput{Code: "1010", Name: "Bank", Type: AccountTypeAsset})
	require.NoError(t, err)

	code := "1000"
	_, err = svc.Update(ctx, UpdateInput{ID: bank.ID, Code: &code})
	require.ErrorIs(t, err, shared.ErrDuplicateCode)

	same := "1010"
	_, err = svc.Update(ctx, UpdateInput{ID: bank.ID, Code: &same})
	require.NoError(t, err)
}

func TestDeactivateAndActivate(t *testing.T) {
	svc, _, audit, _ := newTestService()
	ctx := context.Background()

	acc, err := svc.Create(ctx, CreateInput{Code: "5100", Name: "Commission", Type: AccountTypeExpense})
	require.NoError(t, err)

	acc, err = svc.Deactivate(ctx, acc.ID, 3)
	require.NoError(t, err)
	require.False(t, acc.IsActive)

	acc, err = svc.Deactivate(ctx, acc.ID, 3)
	require.NoError(t, err)
	require.False(t, acc.IsActive)
	require.Len(t, audit.logs, 2)

	acc, err = svc.Activate(ctx, acc.ID, 3)
	require.NoError(t, err)
	require.True(t, acc.IsActive)
	require.Equal(t, "account.activate", audit.logs[len(audit.logs)-1].Action)
}

func TestDeleteGuards(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	parent, err := svc.Create(ctx, CreateInput{Code: "1100", Name: "Receivables", Type: AccountTypeAsset})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateInput{Code: "1101", Name: "Customer", Type: AccountTypeAsset, ParentID: &parent.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, parent.ID, 1)
	var inUse *shared.AccountInUseError
	require.True(t, errors.As(err, &inUse))
	require.Equal(t, int64(1), inUse.Children)
	require.Equal(t, "1100", inUse.Code)

	repo.lines[child.ID] = 2
	err = svc.Delete(ctx, child.ID, 1)
	require.ErrorIs(t, err, shared.ErrAccountInUse)

	repo.lines[child.ID] = 0
	require.NoError(t, svc.Delete(ctx, child.ID, 1))
	require.NoError(t, svc.Delete(ctx, parent.ID, 1))

	_, err = svc.Get(ctx, parent.ID)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestListHierarchy(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	rev, err := svc.Create(ctx, CreateInput{Code: "4000", Name: "Revenue", Type: AccountTypeRevenue})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Code: "4200", Name: "F&B", Type: AccountTypeRevenue, ParentID: &rev.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Code: "4100", Name: "Rooms", Type: AccountTypeRevenue, ParentID: &rev.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)

	roots, err := svc.ListHierarchy(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	require.Equal(t, "1000", roots[0].Code)
	require.Equal(t, "4100", roots[1].Children[0].Code)
	require.Equal(t, "4200", roots[1].Children[1].Code)
}
