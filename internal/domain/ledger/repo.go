package ledger

import (
	"context"

	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Repository defines data access for the stock ledger.
// Mutating methods must be called inside a transaction; balance reads used
// for read-modify-write take row locks.
type Repository interface {
	// CreateMovement appends one ledger entry.
	CreateMovement(ctx context.Context, m *Movement) error

	// ListMovements returns movement history, newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)

	// GetUnitStockForUpdate returns the per-unit balance with a row lock,
	// a zero balance when the row does not exist yet.
	GetUnitStockForUpdate(ctx context.Context, unitID, productID id.ID, variantID *id.ID) (UnitStock, error)

	// UpsertUnitStock writes the per-unit balance.
	UpsertUnitStock(ctx context.Context, s UnitStock) error

	// ListUnitStock returns balances held at a unit.
	ListUnitStock(ctx context.Context, unitID id.ID, excludeZero bool) ([]UnitStock, error)

	// ListStockByProduct returns balances for a product across units.
	ListStockByProduct(ctx context.Context, productID id.ID) ([]UnitStock, error)

	// GetProductStockForUpdate returns the consolidated product balance with a row lock.
	GetProductStockForUpdate(ctx context.Context, productID id.ID) (types.Quantity, error)

	// SetProductStock writes the consolidated product balance cache.
	SetProductStock(ctx context.Context, productID id.ID, qty types.Quantity) error

	// GetProductThresholds returns (minStock, maxStock) for alert evaluation.
	GetProductThresholds(ctx context.Context, productID id.ID) (types.Quantity, types.Quantity, error)

	// CreateAlert stores a new alert.
	CreateAlert(ctx context.Context, a *Alert) error

	// ListAlerts returns alerts, newest first.
	ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error)

	// MarkAlertRead flags an alert as read.
	MarkAlertRead(ctx context.Context, alertID id.ID) error

	// MarkAlertNotified flags an alert as delivered to the notifier.
	MarkAlertNotified(ctx context.Context, alertID id.ID) error
}
