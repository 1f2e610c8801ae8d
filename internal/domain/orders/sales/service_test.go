package sales

import (
	"context"
	"errors"
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
	orders map[id.ID]*Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[id.ID]*Order)}
}

func (r *memRepo) Create(ctx context.Context, o *Order) error {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	r.orders[o.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("sales order", orderID.String())
	}
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp, nil
}

// Update mirrors the SQL contract: the write only lands when the stored
// row still carries the expected version, and the row version advances.
func (r *memRepo) Update(ctx context.Context, o *Order, expectedVersion int) error {
	stored, ok := r.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("sales order", o.ID.String())
	}
	if stored.Version != expectedVersion {
		return apperror.NewConcurrentModification("sales order", o.ID.String())
	}
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	cp.Version = expectedVersion + 1
	r.orders[o.ID] = &cp
	return nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, orderID id.ID, status string, expectedVersion int) error {
	o, ok := r.orders[orderID]
	if !ok {
		return apperror.NewNotFound("sales order", orderID.String())
	}
	if o.Version != expectedVersion {
		return apperror.NewConcurrentModification("sales order", orderID.String())
	}
	o.Status = status
	o.Version++
	return nil
}

func (r *memRepo) List(ctx context.Context, f ListFilter) ([]*Order, int64, error) {
	return nil, 0, nil
}

type receivable struct {
	orderID     id.ID
	customerID  id.ID
	description string
	amount      types.Money
}

type recordingReceivables struct {
	created []receivable
	err     error
}

func (r *recordingReceivables) CreateReceivableFromOrder(ctx context.Context, orderID, customerID id.ID, description string, amount types.Money, dueDate time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, receivable{orderID, customerID, description, amount})
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepo, *recordingReceivables) {
	t.Helper()
	repo := newMemRepo()
	receivables := &recordingReceivables{}
	svc := NewService(repo, fakeTxManager{}, nil, receivables)
	return svc, repo, receivables
}

func newOrder(t *testing.T, svc *Service, status string) *Order {
	t.Helper()
	o := NewOrder(id.New())
	o.Number = "PV000001"
	o.Items = []Item{
		{
			ID:        id.New(),
			ProductID: id.New(),
			Quantity:  types.NewQuantityFromInt(2),
			UnitPrice: types.NewMoney(125),
			Discount:  types.NewMoney(10),
		},
	}
	require.NoError(t, svc.Create(context.Background(), o))
	if status != StatusDraft {
		o.Status = status
		require.NoError(t, svc.repo.Update(context.Background(), o, o.Version))
	}
	return o
}

func TestSales_TotalsIncludeLineDiscounts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	o := newOrder(t, svc, StatusDraft)

	stored, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	// 2 * 125 - 10 line discount
	assert.True(t, stored.Subtotal.Equal(types.NewMoney(240)))
	assert.True(t, stored.Items[0].TotalPrice.Equal(types.NewMoney(240)))
}

func TestSales_ConfirmOpensReceivable(t *testing.T) {
	ctx := context.Background()
	svc, repo, receivables := newTestService(t)
	o := newOrder(t, svc, StatusPending)

	confirmed, err := svc.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	require.Len(t, receivables.created, 1)
	rec := receivables.created[0]
	assert.Equal(t, o.ID, rec.orderID)
	assert.Equal(t, o.CustomerID, rec.customerID)
	assert.True(t, rec.amount.Equal(o.Total))
	assert.Contains(t, rec.description, o.Number)

	stored, _ := repo.GetByID(ctx, o.ID)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestSales_ConfirmRequiresPending(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{StatusDraft, StatusConfirmed, StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			svc, _, receivables := newTestService(t)
			o := newOrder(t, svc, status)

			_, err := svc.Confirm(ctx, o.ID)
			require.Error(t, err)
			assert.True(t, apperror.IsInvalidTransition(err))
			assert.Empty(t, receivables.created)
		})
	}
}

func TestSales_ConfirmPropagatesReceivableFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, receivables := newTestService(t)
	receivables.err = apperror.NewInternal(errors.New("receivable storage down"))
	o := newOrder(t, svc, StatusPending)

	_, err := svc.Confirm(ctx, o.ID)
	require.Error(t, err)
}

func TestSales_FulfilmentChain(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	o := newOrder(t, svc, StatusPending)

	_, err := svc.Confirm(ctx, o.ID)
	require.NoError(t, err)

	for _, status := range []string{StatusProcessing, StatusShipped, StatusDelivered} {
		updated, err := svc.UpdateStatus(ctx, o.ID, status)
		require.NoError(t, err, "transition to %s", status)
		assert.Equal(t, status, updated.Status)
	}

	// Delivered orders cannot be cancelled.
	_, err = svc.UpdateStatus(ctx, o.ID, StatusCancelled)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}
