package ledger

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/apperror"
	appctx "atelier/internal/core/context"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/pkg/logger"
)

// Notifier delivers stock alerts to an external channel.
// Delivery failure must not fail the movement that raised the alert.
type Notifier interface {
	NotifyAlert(ctx context.Context, a Alert) error
}

// Service provides business operations for the stock ledger.
type Service struct {
	repo      Repository
	txManager tx.Manager
	notifier  Notifier
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager, notifier Notifier) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		notifier:  notifier,
	}
}

// RecordMovementInput describes one requested stock movement.
type RecordMovementInput struct {
	ProductID id.ID
	VariantID *id.ID
	UnitID    *id.ID

	Type   MovementType
	Reason MovementReason

	// Quantity is the moved amount for IN/OUT, or the absolute new balance
	// for ADJUSTMENT. Must be non-negative, positive for IN/OUT.
	Quantity types.Quantity

	UnitCost   *types.Money
	DocumentID *id.ID
	Notes      string
}

// RecordMovement appends a ledger entry and updates balances atomically.
//
// Within one transaction: locks the affected balances, rejects OUT movements
// that would drive stock negative, captures previous/new consolidated stock
// on the entry, and evaluates threshold alerts. Alert notification happens
// after commit and is fire-and-forget.
func (s *Service) RecordMovement(ctx context.Context, input RecordMovementInput) (*Movement, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	var (
		movement *Movement
		alerts   []*Alert
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		productStock, err := s.repo.GetProductStockForUpdate(ctx, input.ProductID)
		if err != nil {
			return fmt.Errorf("lock product stock: %w", err)
		}

		var unitStock UnitStock
		if input.UnitID != nil {
			unitStock, err = s.repo.GetUnitStockForUpdate(ctx, *input.UnitID, input.ProductID, input.VariantID)
			if err != nil {
				return fmt.Errorf("lock unit stock: %w", err)
			}
		}

		delta, err := s.computeDelta(input, productStock, unitStock)
		if err != nil {
			return err
		}

		newProductStock := productStock + delta

		m := &Movement{
			ID:            id.New(),
			ProductID:     input.ProductID,
			VariantID:     input.VariantID,
			UnitID:        input.UnitID,
			Type:          input.Type,
			Reason:        input.Reason,
			Quantity:      input.Quantity,
			PreviousStock: productStock,
			NewStock:      newProductStock,
			UnitCost:      input.UnitCost,
			DocumentID:    input.DocumentID,
			Notes:         input.Notes,
			UserID:        appctx.GetUserID(ctx),
			CreatedAt:     time.Now().UTC(),
		}
		if input.UnitCost != nil {
			total := input.UnitCost.Mul(input.Quantity.Decimal())
			m.TotalCost = &total
		}

		if err := s.repo.CreateMovement(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		if input.UnitID != nil {
			now := time.Now().UTC()
			unitStock.UnitID = *input.UnitID
			unitStock.ProductID = input.ProductID
			unitStock.VariantID = input.VariantID
			unitStock.Quantity += delta
			unitStock.LastMovementAt = &now
			unitStock.UpdatedAt = now
			if err := s.repo.UpsertUnitStock(ctx, unitStock); err != nil {
				return fmt.Errorf("update unit stock: %w", err)
			}
		}

		if err := s.repo.SetProductStock(ctx, input.ProductID, newProductStock); err != nil {
			return fmt.Errorf("update product stock: %w", err)
		}

		alerts, err = s.evaluateAlerts(ctx, input.ProductID, input.UnitID, productStock, newProductStock)
		if err != nil {
			return err
		}

		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchAlerts(ctx, alerts)

	return movement, nil
}

func (s *Service) validateInput(input RecordMovementInput) error {
	if id.IsNil(input.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	switch input.Type {
	case MovementIn, MovementOut:
		if !input.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "quantity")
		}
	case MovementAdjustment:
		if input.Quantity.IsNegative() {
			return apperror.NewValidation("adjustment quantity cannot be negative").
				WithDetail("field", "quantity")
		}
	default:
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "type").
			WithDetail("value", string(input.Type))
	}
	if input.Reason == "" {
		return apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	return nil
}

// computeDelta returns the signed consolidated stock change and enforces the
// non-negative stock policy on the balance the movement draws from.
func (s *Service) computeDelta(input RecordMovementInput, productStock types.Quantity, unitStock UnitStock) (types.Quantity, error) {
	switch input.Type {
	case MovementIn:
		return input.Quantity, nil

	case MovementOut:
		available := productStock
		if input.UnitID != nil {
			available = unitStock.Quantity
		}
		if available < input.Quantity {
			return 0, apperror.NewInsufficientStock(
				input.ProductID.String(),
				input.Quantity.Float64(),
				available.Float64(),
			)
		}
		return input.Quantity.Neg(), nil

	case MovementAdjustment:
		// Quantity is the absolute new balance of the adjusted scope.
		if input.UnitID != nil {
			return input.Quantity - unitStock.Quantity, nil
		}
		return input.Quantity - productStock, nil
	}
	return 0, apperror.NewValidation("invalid movement type")
}

// evaluateAlerts raises threshold alerts when the consolidated balance
// crosses min/max stock or hits zero.
func (s *Service) evaluateAlerts(ctx context.Context, productID id.ID, unitID *id.ID, before, after types.Quantity) ([]*Alert, error) {
	minStock, maxStock, err := s.repo.GetProductThresholds(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get thresholds: %w", err)
	}

	var raised []*Alert

	raise := func(alertType AlertType, threshold types.Quantity) error {
		a := &Alert{
			ID:           id.New(),
			ProductID:    productID,
			UnitID:       unitID,
			Type:         alertType,
			CurrentStock: after,
			Threshold:    threshold,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.repo.CreateAlert(ctx, a); err != nil {
			return fmt.Errorf("create alert: %w", err)
		}
		raised = append(raised, a)
		return nil
	}

	switch {
	case after.IsZero() && !before.IsZero():
		if err := raise(AlertOutOfStock, 0); err != nil {
			return nil, err
		}
	case !minStock.IsZero() && after < minStock && before >= minStock:
		if err := raise(AlertLowStock, minStock); err != nil {
			return nil, err
		}
	}

	if !maxStock.IsZero() && after > maxStock && before <= maxStock {
		if err := raise(AlertHighStock, maxStock); err != nil {
			return nil, err
		}
	}

	return raised, nil
}

// dispatchAlerts delivers alerts after commit. Failures only log; the alert
// row stays is_notified=false for a later scan.
func (s *Service) dispatchAlerts(ctx context.Context, alerts []*Alert) {
	if s.notifier == nil {
		return
	}
	for _, a := range alerts {
		if err := s.notifier.NotifyAlert(ctx, *a); err != nil {
			logger.Warn(ctx, "alert notification failed",
				"alert_id", a.ID,
				"product_id", a.ProductID,
				"error", err,
			)
			continue
		}
		if err := s.repo.MarkAlertNotified(ctx, a.ID); err != nil {
			logger.Warn(ctx, "mark alert notified failed", "alert_id", a.ID, "error", err)
		}
	}
}

// ListMovements returns movement history.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// GetUnitStock returns balances held at a unit.
func (s *Service) GetUnitStock(ctx context.Context, unitID id.ID) ([]UnitStock, error) {
	return s.repo.ListUnitStock(ctx, unitID, true)
}

// GetProductAvailability returns the product balance across all units.
func (s *Service) GetProductAvailability(ctx context.Context, productID id.ID) (types.Quantity, []UnitStock, error) {
	stocks, err := s.repo.ListStockByProduct(ctx, productID)
	if err != nil {
		return 0, nil, fmt.Errorf("get balances: %w", err)
	}

	var total types.Quantity
	for _, b := range stocks {
		total += b.Quantity
	}
	return total, stocks, nil
}

// ListAlerts returns stock alerts.
func (s *Service) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	return s.repo.ListAlerts(ctx, filter)
}

// MarkAlertRead flags an alert as read.
func (s *Service) MarkAlertRead(ctx context.Context, alertID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.MarkAlertRead(ctx, alertID)
	})
}

// RetryUnnotifiedAlerts re-delivers alerts whose notification failed. The
// query is restricted to undelivered alerts so already-notified ones never
// eat into the batch.
func (s *Service) RetryUnnotifiedAlerts(ctx context.Context, limit int) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}

	alerts, err := s.repo.ListAlerts(ctx, AlertFilter{UnnotifiedOnly: true, Limit: limit})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range alerts {
		if err := s.notifier.NotifyAlert(ctx, a); err != nil {
			continue
		}
		if err := s.repo.MarkAlertNotified(ctx, a.ID); err == nil {
			sent++
		}
	}
	return sent, nil
}
