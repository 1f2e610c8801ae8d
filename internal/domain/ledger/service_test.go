package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// fakeTxManager runs the function directly, no database involved.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	movements    []Movement
	unitStock    map[string]UnitStock
	productStock map[id.ID]types.Quantity
	minStock     map[id.ID]types.Quantity
	maxStock     map[id.ID]types.Quantity
	alerts       []Alert
}

func newMemRepo() *memRepo {
	return &memRepo{
		unitStock:    make(map[string]UnitStock),
		productStock: make(map[id.ID]types.Quantity),
		minStock:     make(map[id.ID]types.Quantity),
		maxStock:     make(map[id.ID]types.Quantity),
	}
}

func unitKey(unitID, productID id.ID) string {
	return unitID.String() + "/" + productID.String()
}

func (r *memRepo) CreateMovement(ctx context.Context, m *Movement) error {
	r.movements = append(r.movements, *m)
	return nil
}

func (r *memRepo) ListMovements(ctx context.Context, f MovementFilter) ([]Movement, error) {
	return r.movements, nil
}

func (r *memRepo) GetUnitStockForUpdate(ctx context.Context, unitID, productID id.ID, variantID *id.ID) (UnitStock, error) {
	if s, ok := r.unitStock[unitKey(unitID, productID)]; ok {
		return s, nil
	}
	return UnitStock{UnitID: unitID, ProductID: productID}, nil
}

func (r *memRepo) UpsertUnitStock(ctx context.Context, s UnitStock) error {
	r.unitStock[unitKey(s.UnitID, s.ProductID)] = s
	return nil
}

func (r *memRepo) ListUnitStock(ctx context.Context, unitID id.ID, excludeZero bool) ([]UnitStock, error) {
	var out []UnitStock
	for _, s := range r.unitStock {
		if s.UnitID == unitID && (!excludeZero || !s.Quantity.IsZero()) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) ListStockByProduct(ctx context.Context, productID id.ID) ([]UnitStock, error) {
	var out []UnitStock
	for _, s := range r.unitStock {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) GetProductStockForUpdate(ctx context.Context, productID id.ID) (types.Quantity, error) {
	return r.productStock[productID], nil
}

func (r *memRepo) SetProductStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	r.productStock[productID] = qty
	return nil
}

func (r *memRepo) GetProductThresholds(ctx context.Context, productID id.ID) (types.Quantity, types.Quantity, error) {
	return r.minStock[productID], r.maxStock[productID], nil
}

func (r *memRepo) CreateAlert(ctx context.Context, a *Alert) error {
	r.alerts = append(r.alerts, *a)
	return nil
}

func (r *memRepo) ListAlerts(ctx context.Context, f AlertFilter) ([]Alert, error) {
	var out []Alert
	for _, a := range r.alerts {
		if f.UnnotifiedOnly && a.IsNotified {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) MarkAlertRead(ctx context.Context, alertID id.ID) error {
	for i := range r.alerts {
		if r.alerts[i].ID == alertID {
			r.alerts[i].IsRead = true
		}
	}
	return nil
}

func (r *memRepo) MarkAlertNotified(ctx context.Context, alertID id.ID) error {
	for i := range r.alerts {
		if r.alerts[i].ID == alertID {
			r.alerts[i].IsNotified = true
		}
	}
	return nil
}

type noopNotifier struct{ calls int }

func (n *noopNotifier) NotifyAlert(ctx context.Context, a Alert) error {
	n.calls++
	return nil
}

func newTestService(repo *memRepo) (*Service, *noopNotifier) {
	n := &noopNotifier{}
	return NewService(repo, fakeTxManager{}, n), n
}

func TestRecordMovement_RunningBalance(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	productID := id.New()

	steps := []struct {
		mtype MovementType
		qty   int64
		want  int64 // consolidated stock after the step
	}{
		{MovementIn, 10, 10},
		{MovementIn, 5, 15},
		{MovementOut, 7, 8},
		{MovementAdjustment, 20, 20},
		{MovementOut, 20, 0},
	}

	for i, step := range steps {
		m, err := svc.RecordMovement(ctx, RecordMovementInput{
			ProductID: productID,
			Type:      step.mtype,
			Reason:    ReasonManual,
			Quantity:  types.NewQuantityFromInt(step.qty),
		})
		require.NoError(t, err, "step %d", i)

		assert.Equal(t, types.NewQuantityFromInt(step.want), m.NewStock, "step %d", i)
		assert.Equal(t, types.NewQuantityFromInt(step.want), repo.productStock[productID], "step %d", i)

		// Each entry must link to its predecessor's balance.
		q := types.NewQuantityFromInt(step.qty)
		switch step.mtype {
		case MovementIn:
			assert.Equal(t, m.PreviousStock+q, m.NewStock)
		case MovementOut:
			assert.Equal(t, m.PreviousStock-q, m.NewStock)
		case MovementAdjustment:
			assert.Equal(t, q, m.NewStock)
		}
	}
}

func TestRecordMovement_RejectsNegativeStock(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	productID := id.New()

	_, err := svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		Type:      MovementIn,
		Reason:    ReasonPurchase,
		Quantity:  types.NewQuantityFromInt(3),
	})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		Type:      MovementOut,
		Reason:    ReasonSale,
		Quantity:  types.NewQuantityFromInt(5),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	// Balance and ledger untouched by the rejected movement.
	assert.Equal(t, types.NewQuantityFromInt(3), repo.productStock[productID])
	assert.Len(t, repo.movements, 1)
}

func TestRecordMovement_LowStockAlert(t *testing.T) {
	repo := newMemRepo()
	svc, notifier := newTestService(repo)
	ctx := context.Background()
	productID := id.New()
	repo.minStock[productID] = types.NewQuantityFromInt(10)

	_, err := svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		Type:      MovementIn,
		Reason:    ReasonPurchase,
		Quantity:  types.NewQuantityFromInt(12),
	})
	require.NoError(t, err)
	assert.Empty(t, repo.alerts)

	// 12 -> 5 crosses the minimum of 10.
	_, err = svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		Type:      MovementOut,
		Reason:    ReasonSale,
		Quantity:  types.NewQuantityFromInt(7),
	})
	require.NoError(t, err)

	require.Len(t, repo.alerts, 1)
	alert := repo.alerts[0]
	assert.Equal(t, AlertLowStock, alert.Type)
	assert.Equal(t, types.NewQuantityFromInt(5), alert.CurrentStock)
	assert.Equal(t, types.NewQuantityFromInt(10), alert.Threshold)
	assert.True(t, alert.IsNotified)
	assert.Equal(t, 1, notifier.calls)
}

func TestRecordMovement_OutOfStockAlert(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	productID := id.New()

	_, err := svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		Type:      MovementIn,
		Reason:    ReasonPurchase,
		Quantity:  types.NewQuantityFromInt(4),
	})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		Type:      MovementOut,
		Reason:    ReasonSale,
		Quantity:  types.NewQuantityFromInt(4),
	})
	require.NoError(t, err)

	require.Len(t, repo.alerts, 1)
	assert.Equal(t, AlertOutOfStock, repo.alerts[0].Type)
}

func TestRecordMovement_UnitScopedOut(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	productID := id.New()
	unitA := id.New()
	unitB := id.New()

	_, err := svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		UnitID:    &unitA,
		Type:      MovementIn,
		Reason:    ReasonPurchase,
		Quantity:  types.NewQuantityFromInt(10),
	})
	require.NoError(t, err)

	// Unit B holds nothing; an OUT there must fail even though the
	// consolidated balance could cover it.
	_, err = svc.RecordMovement(ctx, RecordMovementInput{
		ProductID: productID,
		UnitID:    &unitB,
		Type:      MovementOut,
		Reason:    ReasonSale,
		Quantity:  types.NewQuantityFromInt(1),
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
}

func TestRecordMovement_Validation(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordMovementInput
	}{
		{"missing product", RecordMovementInput{Type: MovementIn, Reason: ReasonManual, Quantity: types.NewQuantityFromInt(1)}},
		{"zero quantity in", RecordMovementInput{ProductID: id.New(), Type: MovementIn, Reason: ReasonManual}},
		{"negative adjustment", RecordMovementInput{ProductID: id.New(), Type: MovementAdjustment, Reason: ReasonManual, Quantity: types.NewQuantityFromInt(-1)}},
		{"bad type", RecordMovementInput{ProductID: id.New(), Type: "WAT", Reason: ReasonManual, Quantity: types.NewQuantityFromInt(1)}},
		{"missing reason", RecordMovementInput{ProductID: id.New(), Type: MovementIn, Quantity: types.NewQuantityFromInt(1)}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.RecordMovement(ctx, c.input)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestRetryUnnotifiedAlerts_SkipsDelivered(t *testing.T) {
	// Delivered alerts must not eat into the batch: with a limit smaller
	// than the number of delivered alerts, the undelivered one still goes out.
	repo := newMemRepo()
	svc, notifier := newTestService(repo)

	for i := 0; i < 5; i++ {
		repo.alerts = append(repo.alerts, Alert{ID: id.New(), ProductID: id.New(), IsNotified: true})
	}
	pending := Alert{ID: id.New(), ProductID: id.New()}
	repo.alerts = append(repo.alerts, pending)

	sent, err := svc.RetryUnnotifiedAlerts(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, notifier.calls)

	for _, a := range repo.alerts {
		if a.ID == pending.ID {
			assert.True(t, a.IsNotified)
		}
	}
}

func TestRetryUnnotifiedAlerts_NoNotifier(t *testing.T) {
	repo := newMemRepo()
	repo.alerts = append(repo.alerts, Alert{ID: id.New(), ProductID: id.New()})
	svc := NewService(repo, fakeTxManager{}, nil)

	sent, err := svc.RetryUnnotifiedAlerts(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, sent)
}
