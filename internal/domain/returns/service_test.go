package returns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
	"atelier/internal/domain/ledger"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	returns map[id.ID]*Return
}

func newMemRepo() *memRepo {
	return &memRepo{returns: make(map[id.ID]*Return)}
}

func (r *memRepo) Create(ctx context.Context, ret *Return) error {
	cp := *ret
	r.returns[ret.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, returnID id.ID) (*Return, error) {
	ret, ok := r.returns[returnID]
	if !ok {
		return nil, apperror.NewNotFound("return", returnID.String())
	}
	cp := *ret
	cp.Items = append([]Item(nil), ret.Items...)
	return &cp, nil
}

// Update mirrors the SQL contract: the write only lands when the stored
// row still carries the expected version, and the row version advances.
func (r *memRepo) Update(ctx context.Context, ret *Return, expectedVersion int) error {
	stored, ok := r.returns[ret.ID]
	if !ok {
		return apperror.NewNotFound("return", ret.ID.String())
	}
	if stored.Version != expectedVersion {
		return apperror.NewConcurrentModification("return", ret.ID)
	}
	cp := *ret
	cp.Items = append([]Item(nil), ret.Items...)
	cp.Version = expectedVersion + 1
	r.returns[ret.ID] = &cp
	return nil
}

func (r *memRepo) List(ctx context.Context, f ListFilter) ([]*Return, int64, error) {
	return nil, 0, nil
}

type recordingStock struct {
	movements []ledger.RecordMovementInput
}

func (s *recordingStock) RecordMovement(ctx context.Context, input ledger.RecordMovementInput) (*ledger.Movement, error) {
	s.movements = append(s.movements, input)
	return &ledger.Movement{ID: id.New()}, nil
}

type refundRecord struct {
	kind        string
	returnID    id.ID
	customerID  id.ID
	description string
	amount      types.Money
	unitID      *id.ID
}

type recordingRefunds struct {
	posted []refundRecord
}

func (p *recordingRefunds) CreateRefundExpense(ctx context.Context, description string, amount types.Money, unitID *id.ID) error {
	p.posted = append(p.posted, refundRecord{kind: "expense", description: description, amount: amount, unitID: unitID})
	return nil
}

func (p *recordingRefunds) CreateCustomerCredit(ctx context.Context, returnID, customerID id.ID, description string, amount types.Money) error {
	p.posted = append(p.posted, refundRecord{kind: "credit", returnID: returnID, customerID: customerID, description: description, amount: amount})
	return nil
}

func newTestReturn(t *testing.T, svc *Service, status string, items []Item) *Return {
	t.Helper()
	r := NewReturn(TypeReturn, id.New(), "wrong size")
	r.Number = "DV000001"
	r.Items = items
	require.NoError(t, svc.Create(context.Background(), r))
	if status != StatusPending {
		r.Status = status
		require.NoError(t, svc.repo.Update(context.Background(), r, r.Version))
	}
	return r
}

func TestProcess_ReinstatesSellableItems(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	stock := &recordingStock{}
	refunds := &recordingRefunds{}
	svc := NewService(repo, fakeTxManager{}, nil, stock, refunds)

	items := []Item{
		{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), UnitPrice: types.MustMoney("50"), Condition: ConditionNew},
		{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(2), UnitPrice: types.MustMoney("30"), Condition: ConditionUsed},
	}
	r := newTestReturn(t, svc, StatusApproved, items)

	result, err := svc.Process(ctx, r.ID, ProcessInput{ReturnToStock: true, RefundMethod: "card"})
	require.NoError(t, err)

	// One IN movement per item.
	require.Len(t, stock.movements, 2)
	for _, m := range stock.movements {
		assert.Equal(t, ledger.MovementIn, m.Type)
		assert.Equal(t, ledger.ReasonReturn, m.Reason)
	}
	assert.Len(t, result.Reinstated, 2)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, StatusProcessed, result.Return.Status)

	// Refund defaults to the total item value: 1*50 + 2*30.
	require.NotNil(t, result.Return.RefundAmount)
	assert.True(t, result.Return.RefundAmount.Equal(types.MustMoney("110")))

	// A card refund leaves as cash, not as customer credit.
	require.Len(t, refunds.posted, 1)
	assert.Equal(t, "expense", refunds.posted[0].kind)
	assert.True(t, refunds.posted[0].amount.Equal(types.MustMoney("110")))
}

func TestProcess_StoreCreditOpensCustomerPayable(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	stock := &recordingStock{}
	refunds := &recordingRefunds{}
	svc := NewService(repo, fakeTxManager{}, nil, stock, refunds)

	r := newTestReturn(t, svc, StatusApproved, []Item{
		{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), UnitPrice: types.MustMoney("90"), Condition: ConditionNew},
	})

	amount := types.MustMoney("90")
	_, err := svc.Process(ctx, r.ID, ProcessInput{
		RefundMethod: RefundMethodStoreCredit,
		RefundAmount: &amount,
	})
	require.NoError(t, err)

	require.Len(t, refunds.posted, 1)
	posted := refunds.posted[0]
	assert.Equal(t, "credit", posted.kind)
	assert.Equal(t, r.ID, posted.returnID)
	assert.Equal(t, r.CustomerID, posted.customerID)
	assert.Contains(t, posted.description, r.Number)
	assert.True(t, posted.amount.Equal(amount))
}

func TestProcess_SkipsDamagedAndDefective(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	stock := &recordingStock{}
	refunds := &recordingRefunds{}
	svc := NewService(repo, fakeTxManager{}, nil, stock, refunds)

	damaged := Item{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), Condition: ConditionDamaged}
	defective := Item{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), Condition: ConditionDefective}
	sellable := Item{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), Condition: ConditionNew}
	r := newTestReturn(t, svc, StatusApproved, []Item{damaged, defective, sellable})

	result, err := svc.Process(ctx, r.ID, ProcessInput{ReturnToStock: true})
	require.NoError(t, err)

	require.Len(t, stock.movements, 1)
	assert.Equal(t, sellable.ProductID, stock.movements[0].ProductID)
	assert.ElementsMatch(t, []id.ID{damaged.ID, defective.ID}, result.Skipped)
	assert.Equal(t, []id.ID{sellable.ID}, result.Reinstated)
}

func TestProcess_WithoutRestock(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	stock := &recordingStock{}
	refunds := &recordingRefunds{}
	svc := NewService(repo, fakeTxManager{}, nil, stock, refunds)

	r := newTestReturn(t, svc, StatusApproved, []Item{
		{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), Condition: ConditionNew},
	})

	result, err := svc.Process(ctx, r.ID, ProcessInput{ReturnToStock: false})
	require.NoError(t, err)
	assert.Empty(t, stock.movements)
	assert.Empty(t, result.Reinstated)
	assert.Equal(t, StatusProcessed, result.Return.Status)
}

func TestWorkflow_Guards(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	stock := &recordingStock{}
	refunds := &recordingRefunds{}
	svc := NewService(repo, fakeTxManager{}, nil, stock, refunds)

	item := Item{ID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), Condition: ConditionNew}

	t.Run("process pending", func(t *testing.T) {
		r := newTestReturn(t, svc, StatusPending, []Item{item})
		_, err := svc.Process(ctx, r.ID, ProcessInput{})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("approve rejected", func(t *testing.T) {
		r := newTestReturn(t, svc, StatusRejected, []Item{item})
		_, err := svc.Approve(ctx, r.ID)
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("process twice", func(t *testing.T) {
		r := newTestReturn(t, svc, StatusApproved, []Item{item})
		_, err := svc.Process(ctx, r.ID, ProcessInput{})
		require.NoError(t, err)
		_, err = svc.Process(ctx, r.ID, ProcessInput{})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})
}
