package finance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	accounts map[id.ID]*Account
	entries  []*CashFlowEntry
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[id.ID]*Account)}
}

func (r *memRepo) CreateAccount(ctx context.Context, a *Account) error {
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *memRepo) GetAccountByID(ctx context.Context, accountID id.ID) (*Account, error) {
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("account", accountID.String())
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetAccountForUpdate(ctx context.Context, accountID id.ID) (*Account, error) {
	return r.GetAccountByID(ctx, accountID)
}

// UpdateAccount mirrors the SQL contract: the write only lands when the
// stored row still carries the expected version, and the row version
// advances by one regardless of what the entity copy holds.
func (r *memRepo) UpdateAccount(ctx context.Context, a *Account, expectedVersion int) error {
	stored, ok := r.accounts[a.ID]
	if !ok {
		return apperror.NewNotFound("account", a.ID.String())
	}
	if stored.Version != expectedVersion {
		return apperror.NewConcurrentModification("account", a.ID)
	}
	cp := *a
	cp.Version = expectedVersion + 1
	r.accounts[a.ID] = &cp
	return nil
}

func (r *memRepo) ListAccounts(ctx context.Context, f AccountFilter) ([]*Account, int64, error) {
	var out []*Account
	for _, a := range r.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) CreateCashFlowEntry(ctx context.Context, e *CashFlowEntry) error {
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memRepo) GetCashFlowEntryByID(ctx context.Context, entryID id.ID) (*CashFlowEntry, error) {
	for _, e := range r.entries {
		if e.ID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("cash flow entry", entryID.String())
}

func (r *memRepo) UpdateCashFlowEntry(ctx context.Context, e *CashFlowEntry) error { return nil }
func (r *memRepo) DeleteCashFlowEntry(ctx context.Context, entryID id.ID) error    { return nil }

func (r *memRepo) ListCashFlowEntries(ctx context.Context, f CashFlowFilter) ([]*CashFlowEntry, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func newTestService(repo *memRepo, now time.Time) *Service {
	svc := NewService(repo, fakeTxManager{})
	svc.now = func() time.Time { return now }
	return svc
}

func newPayable(t *testing.T, svc *Service, amount string, due time.Time) *Account {
	t.Helper()
	a := NewAccount(KindPayable, "fabric order", id.New(), types.MustMoney(amount), due)
	require.NoError(t, svc.CreateAccount(context.Background(), a))
	return a
}

func TestRegisterPayment_StatusDerivation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(30 * 24 * time.Hour)

	repo := newMemRepo()
	svc := newTestService(repo, now)
	a := newPayable(t, svc, "100", due)
	assert.Equal(t, StatusPending, a.Status)

	// Partial payment: 0 < paid < amount.
	a1, err := svc.RegisterPayment(ctx, a.ID, types.MustMoney("40"))
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, a1.Status)
	assert.True(t, a1.PaidAmount.Equal(types.MustMoney("40")))

	// Full settlement.
	a2, err := svc.RegisterPayment(ctx, a.ID, types.MustMoney("60"))
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, a2.Status)
	require.NotNil(t, a2.PaidAt)

	// No further payments on a settled account.
	_, err = svc.RegisterPayment(ctx, a.ID, types.MustMoney("1"))
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	// Each payment produced a cash flow entry.
	assert.Len(t, repo.entries, 2)
	assert.Equal(t, FlowExpense, repo.entries[0].Type)
}

func TestRegisterPayment_PaidAmountMonotone(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := newTestService(repo, now)
	a := newPayable(t, svc, "100", now.Add(24*time.Hour))

	_, err := svc.RegisterPayment(ctx, a.ID, types.MustMoney("-10"))
	require.Error(t, err)

	_, err = svc.RegisterPayment(ctx, a.ID, types.MustMoney("0"))
	require.Error(t, err)

	// Overpayment is rejected, the balance stays where it was.
	_, err = svc.RegisterPayment(ctx, a.ID, types.MustMoney("70"))
	require.NoError(t, err)
	_, err = svc.RegisterPayment(ctx, a.ID, types.MustMoney("50"))
	require.Error(t, err)

	stored, err := svc.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(types.MustMoney("70")))
}

func TestGetAccount_OverdueUpgrade(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	repo := newMemRepo()
	svc := newTestService(repo, due.Add(-time.Hour))
	a := newPayable(t, svc, "100", due)

	// Before the due date the account stays pending.
	got, err := svc.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	// Past due it reads as OVERDUE without a write.
	svc.now = func() time.Time { return due.Add(time.Hour) }
	got, err = svc.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, got.Status)

	// A paid account never reads as overdue.
	_, err = svc.RegisterPayment(ctx, a.ID, types.MustMoney("100"))
	require.NoError(t, err)
	got, err = svc.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
}

func TestCancelAccount(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := newTestService(repo, now)

	t.Run("clean cancel", func(t *testing.T) {
		a := newPayable(t, svc, "50", now.Add(24*time.Hour))
		got, err := svc.CancelAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("cancel with payments is rejected", func(t *testing.T) {
		a := newPayable(t, svc, "50", now.Add(24*time.Hour))
		_, err := svc.RegisterPayment(ctx, a.ID, types.MustMoney("10"))
		require.NoError(t, err)
		_, err = svc.CancelAccount(ctx, a.ID)
		require.Error(t, err)
	})
}

func TestCreateReceivableFromOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := newTestService(repo, now)

	orderID := id.New()
	customerID := id.New()
	err := svc.CreateReceivableFromOrder(ctx, orderID, customerID, "Sales order PV000123", types.MustMoney("250"), now)
	require.NoError(t, err)

	accounts, _, err := svc.ListAccounts(ctx, AccountFilter{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	a := accounts[0]
	assert.Equal(t, KindReceivable, a.Kind)
	assert.Equal(t, customerID, a.PartyID)
	require.NotNil(t, a.OrderID)
	assert.Equal(t, orderID, *a.OrderID)
}

func TestRegisterPayment_VersionAdvancesPerPayment(t *testing.T) {
	// The service bumps the in-memory version before saving; the save must
	// still match the row at the version it was locked at, and the stored
	// version advances by one per payment.
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := newTestService(repo, now)
	a := newPayable(t, svc, "100", now.Add(24*time.Hour))
	require.Equal(t, 1, repo.accounts[a.ID].Version)

	_, err := svc.RegisterPayment(ctx, a.ID, types.MustMoney("40"))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.accounts[a.ID].Version)

	_, err = svc.RegisterPayment(ctx, a.ID, types.MustMoney("60"))
	require.NoError(t, err)
	assert.Equal(t, 3, repo.accounts[a.ID].Version)
}

func TestRefundPostings(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	svc := newTestService(repo, now)

	t.Run("cash refund lands in the cash flow", func(t *testing.T) {
		unitID := id.New()
		err := svc.CreateRefundExpense(ctx, "Refund for return DV000007", types.MustMoney("80"), &unitID)
		require.NoError(t, err)
		require.Len(t, repo.entries, 1)
		entry := repo.entries[0]
		assert.Equal(t, FlowExpense, entry.Type)
		assert.Equal(t, "returns", entry.Category)
		assert.True(t, entry.Amount.Equal(types.MustMoney("80")))
		require.NotNil(t, entry.UnitID)
		assert.Equal(t, unitID, *entry.UnitID)
	})

	t.Run("store credit opens a payable toward the customer", func(t *testing.T) {
		returnID := id.New()
		customerID := id.New()
		err := svc.CreateCustomerCredit(ctx, returnID, customerID, "Refund for return DV000008", types.MustMoney("120"))
		require.NoError(t, err)

		accounts, _, err := svc.ListAccounts(ctx, AccountFilter{})
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		a := accounts[0]
		assert.Equal(t, KindPayable, a.Kind)
		assert.Equal(t, customerID, a.PartyID)
		assert.Equal(t, "returns", a.Category)
		require.NotNil(t, a.OrderID)
		assert.Equal(t, returnID, *a.OrderID)
		assert.True(t, a.Amount.Equal(types.MustMoney("120")))
	})
}
