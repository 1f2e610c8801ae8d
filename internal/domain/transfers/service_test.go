package transfers

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
	transfers map[id.ID]*Transfer
}

func newMemRepo() *memRepo {
	return &memRepo{transfers: make(map[id.ID]*Transfer)}
}

func (r *memRepo) Create(ctx context.Context, t *Transfer) error {
	cp := *t
	r.transfers[t.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, transferID id.ID) (*Transfer, error) {
	t, ok := r.transfers[transferID]
	if !ok {
		return nil, apperror.NewNotFound("transfer", transferID.String())
	}
	cp := *t
	cp.Items = append([]Item(nil), t.Items...)
	return &cp, nil
}

func (r *memRepo) Update(ctx context.Context, t *Transfer, expectedVersion int) error {
	current, ok := r.transfers[t.ID]
	if !ok {
		return apperror.NewNotFound("transfer", t.ID.String())
	}
	if current.Version != expectedVersion {
		return apperror.NewConcurrentModification("transfer", t.ID.String())
	}
	cp := *t
	cp.Items = append([]Item(nil), t.Items...)
	cp.Version = expectedVersion + 1
	r.transfers[t.ID] = &cp
	return nil
}

func (r *memRepo) List(ctx context.Context, f ListFilter) ([]*Transfer, int64, error) {
	return nil, 0, nil
}

type recordingStock struct {
	movements []ledger.RecordMovementInput
}

func (s *recordingStock) RecordMovement(ctx context.Context, input ledger.RecordMovementInput) (*ledger.Movement, error) {
	s.movements = append(s.movements, input)
	return &ledger.Movement{ID: id.New()}, nil
}

func newTestService(t *testing.T) (*Service, *memRepo, *recordingStock) {
	t.Helper()
	repo := newMemRepo()
	stock := &recordingStock{}
	svc := NewService(repo, fakeTxManager{}, nil, stock)
	return svc, repo, stock
}

func newTransfer(t *testing.T, svc *Service, status string) *Transfer {
	t.Helper()
	tr := NewTransfer(id.New(), id.New())
	tr.Number = "TR000001"
	tr.Items = []Item{
		{ID: id.New(), ProductID: id.New(), RequestedQty: types.NewQuantityFromInt(5)},
	}
	require.NoError(t, svc.Create(context.Background(), tr))
	if status != StatusRequested {
		tr.Status = status
		require.NoError(t, svc.repo.Update(context.Background(), tr, tr.Version))
	}
	return tr
}

func TestTransfer_GuardRejections(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		status string
		act    func(svc *Service, transferID id.ID) error
	}{
		{"ship before approval", StatusRequested, func(svc *Service, tid id.ID) error {
			_, err := svc.Ship(ctx, tid, nil)
			return err
		}},
		{"receive before shipping", StatusApproved, func(svc *Service, tid id.ID) error {
			_, err := svc.Receive(ctx, tid, nil)
			return err
		}},
		{"cancel after shipping", StatusShipped, func(svc *Service, tid id.ID) error {
			_, err := svc.Cancel(ctx, tid)
			return err
		}},
		{"approve twice", StatusApproved, func(svc *Service, tid id.ID) error {
			_, err := svc.Approve(ctx, tid)
			return err
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, repo, stock := newTestService(t)
			tr := newTransfer(t, svc, c.status)

			err := c.act(svc, tr.ID)
			require.Error(t, err)

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)

			// Nothing moved and the status is unchanged.
			assert.Empty(t, stock.movements)
			stored, _ := repo.GetByID(ctx, tr.ID)
			assert.Equal(t, c.status, stored.Status)
		})
	}
}

func TestTransfer_HappyPath(t *testing.T) {
	ctx := context.Background()
	svc, _, stock := newTestService(t)
	tr := newTransfer(t, svc, StatusRequested)

	tr2, err := svc.Approve(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, tr2.Status)
	assert.NotNil(t, tr2.ApprovedAt)

	tr3, err := svc.Ship(ctx, tr.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, tr3.Status)
	require.Len(t, stock.movements, 1)
	assert.Equal(t, ledger.MovementOut, stock.movements[0].Type)
	assert.Equal(t, tr.FromUnitID, *stock.movements[0].UnitID)
	assert.Equal(t, types.NewQuantityFromInt(5), stock.movements[0].Quantity)
	require.NotNil(t, tr3.Items[0].ShippedQty)
	assert.Equal(t, types.NewQuantityFromInt(5), *tr3.Items[0].ShippedQty)

	tr4, err := svc.Receive(ctx, tr.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, tr4.Status)
	require.Len(t, stock.movements, 2)
	assert.Equal(t, ledger.MovementIn, stock.movements[1].Type)
	assert.Equal(t, tr.ToUnitID, *stock.movements[1].UnitID)
}

func TestTransfer_ShortShipment(t *testing.T) {
	ctx := context.Background()
	svc, _, stock := newTestService(t)
	tr := newTransfer(t, svc, StatusApproved)

	shipped, err := svc.Ship(ctx, tr.ID, []ShipLine{
		{ItemID: tr.Items[0].ID, Quantity: types.NewQuantityFromInt(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(3), stock.movements[0].Quantity)
	assert.Equal(t, types.NewQuantityFromInt(3), *shipped.Items[0].ShippedQty)

	// Receiving defaults to the shipped quantity, not the requested one.
	received, err := svc.Receive(ctx, tr.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(3), *received.Items[0].ReceivedQty)
}

func TestTransfer_ValidatesUnits(t *testing.T) {
	svc, _, _ := newTestService(t)
	unitID := id.New()
	tr := NewTransfer(unitID, unitID)
	tr.Items = []Item{{ID: id.New(), ProductID: id.New(), RequestedQty: types.NewQuantityFromInt(1)}}

	err := svc.Create(context.Background(), tr)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}
