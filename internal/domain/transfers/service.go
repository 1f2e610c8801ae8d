package transfers

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/apperror"
	appctx "atelier/internal/core/context"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/internal/domain/ledger"
	"atelier/pkg/logger"
	"atelier/pkg/numerator"
)

// Repository defines data access for stock transfers.
type Repository interface {
	Create(ctx context.Context, t *Transfer) error
	GetByID(ctx context.Context, transferID id.ID) (*Transfer, error)
	// Update persists header, items and status with an optimistic version
	// check; returns CONCURRENT_MODIFICATION when the version moved.
	Update(ctx context.Context, t *Transfer, expectedVersion int) error
	List(ctx context.Context, filter ListFilter) ([]*Transfer, int64, error)
}

// ListFilter narrows transfer queries.
type ListFilter struct {
	FromUnitID *id.ID
	ToUnitID   *id.ID
	Status     *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// StockRecorder is the ledger surface used to post unit movements.
type StockRecorder interface {
	RecordMovement(ctx context.Context, input ledger.RecordMovementInput) (*ledger.Movement, error)
}

// Service provides business logic for stock transfers.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator *numerator.Service
	stock     StockRecorder
}

// NewService creates a new transfer service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service, stock StockRecorder) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: num,
		stock:     stock,
	}
}

// Create validates and persists a transfer request.
func (s *Service) Create(ctx context.Context, t *Transfer) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}

	if t.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("TR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		t.Number = number
	}
	if t.RequestedBy == "" {
		t.RequestedBy = appctx.GetUserID(ctx)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, t)
	})
}

// GetByID retrieves a transfer with its items.
func (s *Service) GetByID(ctx context.Context, transferID id.ID) (*Transfer, error) {
	t, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("transfer", transferID.String())
		}
		return nil, err
	}
	return t, nil
}

// Approve moves a requested transfer to APPROVED.
func (s *Service) Approve(ctx context.Context, transferID id.ID) (*Transfer, error) {
	t, err := s.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if err := t.GuardStatus("transfer", "approve", StatusRequested); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expected := t.Version
	t.ApprovedBy = appctx.GetUserID(ctx)
	t.ApprovedAt = &now
	t.SetStatus(StatusApproved)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, t, expected)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel aborts a transfer that has not shipped yet.
func (s *Service) Cancel(ctx context.Context, transferID id.ID) (*Transfer, error) {
	t, err := s.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if err := t.GuardStatus("transfer", "cancel", StatusRequested, StatusApproved); err != nil {
		return nil, err
	}

	expected := t.Version
	t.SetStatus(StatusCancelled)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, t, expected)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ShipLine overrides the shipped quantity for one line.
type ShipLine struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Ship posts the outbound side: one OUT movement at the source unit per line.
// Lines without an override ship the requested quantity.
func (s *Service) Ship(ctx context.Context, transferID id.ID, overrides []ShipLine) (*Transfer, error) {
	t, err := s.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if err := t.GuardStatus("transfer", "ship", StatusApproved); err != nil {
		return nil, err
	}

	byItem := make(map[id.ID]types.Quantity, len(overrides))
	for _, o := range overrides {
		if !o.Quantity.IsPositive() {
			return nil, apperror.NewValidation("shipped quantity must be positive").
				WithDetail("itemId", o.ItemID.String())
		}
		byItem[o.ItemID] = o.Quantity
	}

	now := time.Now().UTC()
	expected := t.Version

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range t.Items {
			item := &t.Items[i]
			qty := item.RequestedQty
			if override, ok := byItem[item.ID]; ok {
				if override > item.RequestedQty {
					return apperror.NewValidation("shipped quantity exceeds requested quantity").
						WithDetail("itemId", item.ID.String())
				}
				qty = override
			}

			fromUnit := t.FromUnitID
			_, err := s.stock.RecordMovement(ctx, ledger.RecordMovementInput{
				ProductID:  item.ProductID,
				VariantID:  item.VariantID,
				UnitID:     &fromUnit,
				Type:       ledger.MovementOut,
				Reason:     ledger.ReasonTransfer,
				Quantity:   qty,
				DocumentID: &t.ID,
			})
			if err != nil {
				return err
			}

			shipped := qty
			item.ShippedQty = &shipped
		}

		t.ShippedAt = &now
		t.SetStatus(StatusShipped)
		return s.repo.Update(ctx, t, expected)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer shipped", "transfer_id", t.ID, "number", t.Number)
	return t, nil
}

// ReceiveLine overrides the received quantity for one line.
type ReceiveLine struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Receive posts the inbound side: one IN movement at the destination unit per
// line. Lines without an override receive the shipped quantity.
func (s *Service) Receive(ctx context.Context, transferID id.ID, overrides []ReceiveLine) (*Transfer, error) {
	t, err := s.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if err := t.GuardStatus("transfer", "receive", StatusShipped); err != nil {
		return nil, err
	}

	byItem := make(map[id.ID]types.Quantity, len(overrides))
	for _, o := range overrides {
		if o.Quantity.IsNegative() {
			return nil, apperror.NewValidation("received quantity cannot be negative").
				WithDetail("itemId", o.ItemID.String())
		}
		byItem[o.ItemID] = o.Quantity
	}

	now := time.Now().UTC()
	expected := t.Version

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range t.Items {
			item := &t.Items[i]

			qty := item.RequestedQty
			if item.ShippedQty != nil {
				qty = *item.ShippedQty
			}
			if override, ok := byItem[item.ID]; ok {
				if item.ShippedQty != nil && override > *item.ShippedQty {
					return apperror.NewValidation("received quantity exceeds shipped quantity").
						WithDetail("itemId", item.ID.String())
				}
				qty = override
			}

			if qty.IsPositive() {
				toUnit := t.ToUnitID
				_, err := s.stock.RecordMovement(ctx, ledger.RecordMovementInput{
					ProductID:  item.ProductID,
					VariantID:  item.VariantID,
					UnitID:     &toUnit,
					Type:       ledger.MovementIn,
					Reason:     ledger.ReasonTransfer,
					Quantity:   qty,
					DocumentID: &t.ID,
				})
				if err != nil {
					return err
				}
			}

			received := qty
			item.ReceivedQty = &received
		}

		t.ReceivedAt = &now
		t.SetStatus(StatusReceived)
		return s.repo.Update(ctx, t, expected)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer received", "transfer_id", t.ID, "number", t.Number)
	return t, nil
}

// List returns transfers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transfer, int64, error) {
	return s.repo.List(ctx, filter)
}
