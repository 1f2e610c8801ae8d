package sales

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/pkg/logger"
	"atelier/pkg/numerator"
)

// Repository defines data access for sales orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	Update(ctx context.Context, o *Order, expectedVersion int) error
	UpdateStatus(ctx context.Context, orderID id.ID, status string, expectedVersion int) error
	List(ctx context.Context, filter ListFilter) ([]*Order, int64, error)
}

// ListFilter narrows sales order queries.
type ListFilter struct {
	CustomerID *id.ID
	UnitID     *id.ID
	Status     *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// ReceivableCreator opens an account receivable when an order is confirmed.
type ReceivableCreator interface {
	CreateReceivableFromOrder(ctx context.Context, orderID, customerID id.ID, description string, amount types.Money, dueDate time.Time) error
}

// Service provides business logic for sales orders.
type Service struct {
	repo        Repository
	txManager   tx.Manager
	numerator   *numerator.Service
	receivables ReceivableCreator
}

// NewService creates a new sales order service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service, receivables ReceivableCreator) *Service {
	return &Service{
		repo:        repo,
		txManager:   txManager,
		numerator:   num,
		receivables: receivables,
	}
}

// Create validates and persists a new draft order with a generated number.
func (s *Service) Create(ctx context.Context, o *Order) error {
	o.RecalculateTotals()
	if err := o.Validate(ctx); err != nil {
		return err
	}

	if o.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PV"), nil, time.Now())
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
			return nil, apperror.NewNotFound("sales order", orderID.String())
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
		return apperror.NewInvalidTransition("sales order", current.Status, "update")
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
	StatusPending:    {StatusDraft},
	StatusProcessing: {StatusConfirmed},
	StatusShipped:    {StatusProcessing},
	StatusDelivered:  {StatusShipped},
	StatusCancelled:  {StatusDraft, StatusPending, StatusConfirmed},
}

// UpdateStatus applies a manual status transition.
// CONFIRMED is reached only through Confirm.
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
	if err := o.GuardStatus("sales order", statusVerb(status), from...); err != nil {
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

// Confirm moves a pending order to CONFIRMED and opens an account receivable
// for the order total, due immediately. Stock is not touched here; physical
// fulfilment is recorded through explicit stock movements or transfers.
func (s *Service) Confirm(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.GuardStatus("sales order", "confirm", StatusPending); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, orderID, StatusConfirmed, o.Version); err != nil {
			return err
		}
		description := fmt.Sprintf("Sales order %s", o.Number)
		return s.receivables.CreateReceivableFromOrder(ctx, o.ID, o.CustomerID, description, o.Total, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	o.SetStatus(StatusConfirmed)

	logger.Info(ctx, "sales order confirmed",
		"order_id", o.ID,
		"number", o.Number,
		"total", o.Total,
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
	case StatusProcessing:
		return "process"
	case StatusShipped:
		return "ship"
	case StatusDelivered:
		return "deliver"
	case StatusCancelled:
		return "cancel"
	default:
		return "update"
	}
}
