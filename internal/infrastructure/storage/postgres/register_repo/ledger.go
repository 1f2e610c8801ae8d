// Package register_repo provides PostgreSQL implementations for the stock
// ledger repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
	"atelier/internal/domain/ledger"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "reg_stock_movements"
	unitStockTable = "reg_unit_stock"
	alertsTable    = "reg_stock_alerts"
	productTable   = "cat_products"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new stock ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMovement appends one ledger entry.
func (r *LedgerRepo) CreateMovement(ctx context.Context, m *ledger.Movement) error {
	q := r.builder.
		Insert(movementsTable).
		SetMap(postgres.StructToMap(m))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert movement: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns movement history, newest first.
func (r *LedgerRepo) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]ledger.Movement, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[ledger.Movement]()...).
		From(movementsTable).
		OrderBy("created_at DESC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.UnitID != nil {
		q = q.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Reason != nil {
		q = q.Where(squirrel.Eq{"reason": *filter.Reason})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list movements: %w", err)
	}

	var items []ledger.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return items, nil
}

// GetUnitStockForUpdate returns the per-unit balance with a row lock.
// Returns a zero balance when the row does not exist yet.
func (r *LedgerRepo) GetUnitStockForUpdate(ctx context.Context, unitID, productID id.ID, variantID *id.ID) (ledger.UnitStock, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[ledger.UnitStock]()...).
		From(unitStockTable).
		Where(squirrel.Eq{"unit_id": unitID}).
		Where(squirrel.Eq{"product_id": productID}).
		Suffix("FOR UPDATE")

	if variantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *variantID})
	} else {
		q = q.Where(squirrel.Eq{"variant_id": nil})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.UnitStock{}, fmt.Errorf("build get unit stock: %w", err)
	}

	var s ledger.UnitStock
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.UnitStock{
				UnitID:    unitID,
				ProductID: productID,
				VariantID: variantID,
			}, nil
		}
		return ledger.UnitStock{}, fmt.Errorf("get unit stock: %w", err)
	}
	return s, nil
}

// UpsertUnitStock writes the per-unit balance.
func (r *LedgerRepo) UpsertUnitStock(ctx context.Context, s ledger.UnitStock) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (unit_id, product_id, variant_id, quantity, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit_id, product_id, COALESCE(variant_id, '00000000-0000-0000-0000-000000000000'::uuid))
		DO UPDATE SET
			quantity = EXCLUDED.quantity,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at
	`, unitStockTable)

	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		s.UnitID, s.ProductID, s.VariantID, s.Quantity, s.LastMovementAt, time.Now())
	if err != nil {
		return fmt.Errorf("upsert unit stock: %w", err)
	}
	return nil
}

// ListUnitStock returns balances held at a unit.
func (r *LedgerRepo) ListUnitStock(ctx context.Context, unitID id.ID, excludeZero bool) ([]ledger.UnitStock, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[ledger.UnitStock]()...).
		From(unitStockTable).
		Where(squirrel.Eq{"unit_id": unitID}).
		OrderBy("product_id")

	if excludeZero {
		q = q.Where(squirrel.NotEq{"quantity": 0})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list unit stock: %w", err)
	}

	var items []ledger.UnitStock
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list unit stock: %w", err)
	}
	return items, nil
}

// ListStockByProduct returns balances for a product across units.
func (r *LedgerRepo) ListStockByProduct(ctx context.Context, productID id.ID) ([]ledger.UnitStock, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[ledger.UnitStock]()...).
		From(unitStockTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("unit_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list stock by product: %w", err)
	}

	var items []ledger.UnitStock
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock by product: %w", err)
	}
	return items, nil
}

// GetProductStockForUpdate returns the consolidated product balance with a row lock.
func (r *LedgerRepo) GetProductStockForUpdate(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql := fmt.Sprintf("SELECT current_stock FROM %s WHERE id = $1 FOR UPDATE", productTable)

	var qty types.Quantity
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	if err != nil {
		return 0, fmt.Errorf("get product stock: %w", err)
	}
	return qty, nil
}

// SetProductStock writes the consolidated product balance cache.
func (r *LedgerRepo) SetProductStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	sql := fmt.Sprintf("UPDATE %s SET current_stock = $2 WHERE id = $1", productTable)

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, productID, qty)
	if err != nil {
		return fmt.Errorf("set product stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// GetProductThresholds returns (minStock, maxStock) for alert evaluation.
func (r *LedgerRepo) GetProductThresholds(ctx context.Context, productID id.ID) (types.Quantity, types.Quantity, error) {
	sql := fmt.Sprintf("SELECT min_stock, max_stock FROM %s WHERE id = $1", productTable)

	var minStock, maxStock types.Quantity
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&minStock, &maxStock)
	if err == pgx.ErrNoRows {
		return 0, 0, apperror.NewNotFound("product", productID.String())
	}
	if err != nil {
		return 0, 0, fmt.Errorf("get product thresholds: %w", err)
	}
	return minStock, maxStock, nil
}

// CreateAlert stores a new alert.
func (r *LedgerRepo) CreateAlert(ctx context.Context, a *ledger.Alert) error {
	q := r.builder.
		Insert(alertsTable).
		SetMap(postgres.StructToMap(a))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert alert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ListAlerts returns alerts, newest first.
func (r *LedgerRepo) ListAlerts(ctx context.Context, filter ledger.AlertFilter) ([]ledger.Alert, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[ledger.Alert]()...).
		From(alertsTable).
		OrderBy("created_at DESC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.UnitID != nil {
		q = q.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.UnreadOnly {
		q = q.Where(squirrel.Eq{"is_read": false})
	}
	if filter.UnnotifiedOnly {
		q = q.Where(squirrel.Eq{"is_notified": false})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list alerts: %w", err)
	}

	var items []ledger.Alert
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return items, nil
}

// MarkAlertRead flags an alert as read.
func (r *LedgerRepo) MarkAlertRead(ctx context.Context, alertID id.ID) error {
	return r.setAlertFlag(ctx, alertID, "is_read")
}

// MarkAlertNotified flags an alert as delivered to the notifier.
func (r *LedgerRepo) MarkAlertNotified(ctx context.Context, alertID id.ID) error {
	return r.setAlertFlag(ctx, alertID, "is_notified")
}

func (r *LedgerRepo) setAlertFlag(ctx context.Context, alertID id.ID, column string) error {
	sql := fmt.Sprintf("UPDATE %s SET %s = true WHERE id = $1", alertsTable, column)

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, alertID)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("alert", alertID.String())
	}
	return nil
}
