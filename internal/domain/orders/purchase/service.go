package purchase

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/internal/domain/ledger"
	"atelier/pkg/logger"
	"atelier/pkg/numerator"
)

// Repository defines data access for purchase orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	Update(ctx context.Context, o *Order, expectedVersion int) error
	UpdateStatus(ctx context.Context, orderID id.ID, status string, expectedVersion int) error
	List(ctx context.Context, filter ListFilter) ([]*Order, int64, error)
}

// ListFilter narrows purchase order queries.
type ListFilter struct {
	SupplierID *id.ID
	Status     *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// StockRecorder is the ledger surface needed to post receipts.
type StockRecorder interface {
	RecordMovement(ctx context.Context, input ledger.RecordMovementInput) (*ledger.Movement, error)
}

// Service provides business logic for purchase orders.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator *numerator.Service
	stock     StockRecorder
}

// NewService creates a new purchase order service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service, stock StockRecorder) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: num,
		stock:     stock,
	}
}

// Create validates and persists a new draft order with a generated number.
func (s *Service) Create(ctx context.Context, o *Order) error {
	o.RecalculateTotals()
	if err := o.Validate(ctx); err != nil {
		return err
	}

	if o.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PC"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		o.Number = number
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, o)
	})
}

// GetByID retrieves an order with its items.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("purchase order", orderID.String())
		}
		return nil, err
	}
	return o, nil
}

// Update modifies an editable order.
func (s *Service) Update(ctx context.Context, o *Order) error {
	current, err := s.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}
	if !current.IsEditable() {
		return apperror.NewInvalidTransition("purchase order", current.Status, "update")
	}

	o.RecalculateTotals()
	if err := o.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, o, current.Version)
	})
}

// allowed status transitions keyed by target.
var transitions = map[string][]string{
	StatusPending:   {StatusDraft},
	StatusApproved:  {StatusPending},
	StatusCancelled: {StatusDraft, StatusPending, StatusApproved},
}

// UpdateStatus applies a manual status transition.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, status string) (*Order, error) {
	from, ok := transitions[status]
	if !ok {
		return nil, apperror.NewValidation("invalid target status").
			WithDetail("status", status)
	}

	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.GuardStatus("purchase order", statusVerb(status), from...); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpdateStatus(ctx, orderID, status, o.Version)
	})
	if err != nil {
		return nil, err
	}

	o.SetStatus(status)
	return o, nil
}

// ReceiptLine specifies how much of one order line arrived.
type ReceiptLine struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Receive posts a (possibly partial) goods receipt: accumulates received
// quantities, emits one IN movement per received line and moves the order to
// PARTIAL or RECEIVED.
func (s *Service) Receive(ctx context.Context, orderID id.ID, unitID *id.ID, lines []ReceiptLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("receipt requires at least one line")
	}

	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.GuardStatus("purchase order", "receive", StatusApproved, StatusPartial); err != nil {
		return nil, err
	}

	if unitID == nil {
		unitID = o.UnitID
	}

	byItem := make(map[id.ID]*Item, len(o.Items))
	for i := range o.Items {
		byItem[o.Items[i].ID] = &o.Items[i]
	}

	// SetStatus bumps the in-memory version; the save must match the row
	// at the version the order was read at.
	expected := o.Version

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range lines {
			item, ok := byItem[line.ItemID]
			if !ok {
				return apperror.NewValidation("receipt line does not belong to the order").
					WithDetail("itemId", line.ItemID.String())
			}
			if !line.Quantity.IsPositive() {
				return apperror.NewValidation("received quantity must be positive").
					WithDetail("itemId", line.ItemID.String())
			}
			remaining := item.Quantity - item.ReceivedQuantity
			if line.Quantity > remaining {
				return apperror.NewValidation("received quantity exceeds outstanding quantity").
					WithDetail("itemId", line.ItemID.String()).
					WithDetail("outstanding", remaining.Float64())
			}

			unitCost := item.UnitCost
			_, err := s.stock.RecordMovement(ctx, ledger.RecordMovementInput{
				ProductID:  item.ProductID,
				VariantID:  item.VariantID,
				UnitID:     unitID,
				Type:       ledger.MovementIn,
				Reason:     ledger.ReasonPurchase,
				Quantity:   line.Quantity,
				UnitCost:   &unitCost,
				DocumentID: &o.ID,
			})
			if err != nil {
				return err
			}

			item.ReceivedQuantity += line.Quantity
		}

		status := StatusPartial
		if o.IsFullyReceived() {
			status = StatusReceived
		}
		o.SetStatus(status)

		return s.repo.Update(ctx, o, expected)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order received",
		"order_id", o.ID,
		"number", o.Number,
		"status", o.Status,
	)

	return o, nil
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Order, int64, error) {
	return s.repo.List(ctx, filter)
}

func statusVerb(status string) string {
	switch status {
	case StatusPending:
		return "submit"
	case StatusApproved:
		return "approve"
	case StatusCancelled:
		return "cancel"
	default:
		return "update"
	}
}
