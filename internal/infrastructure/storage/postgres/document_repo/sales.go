package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain/orders/sales"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	salesOrderTable = "doc_sales_orders"
	salesItemTable  = "doc_sales_order_items"
)

// SalesOrderRepo implements sales.Repository on PostgreSQL.
type SalesOrderRepo struct {
	*BaseDocumentRepo[*sales.Order]
}

// NewSalesOrderRepo creates a sales order repository.
func NewSalesOrderRepo(txManager *postgres.TxManager) *SalesOrderRepo {
	return &SalesOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesOrderTable,
			postgres.ExtractDBColumns[sales.Order](),
			func() *sales.Order { return &sales.Order{} },
		),
	}
}

// Create inserts the order header and its items.
func (r *SalesOrderRepo) Create(ctx context.Context, o *sales.Order) error {
	prepSalesItems(o)
	if err := r.CreateHeader(ctx, o); err != nil {
		return err
	}
	return replaceItems(ctx, r.Querier(ctx), salesItemTable, "order_id", o.ID, o.Items)
}

// GetByID loads the order with its items.
func (r *SalesOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*sales.Order, error) {
	o, err := r.GetHeaderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := loadItems[sales.Item](ctx, r.Querier(ctx), salesItemTable, "order_id", o.ID,
		postgres.ExtractDBColumns[sales.Item]())
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// Update rewrites header and items guarded by the caller's expected version.
// The entity version field is overridden with the expected one so the header
// update only lands when no concurrent writer got in first.
func (r *SalesOrderRepo) Update(ctx context.Context, o *sales.Order, expectedVersion int) error {
	prepSalesItems(o)

	saved := o.Version
	o.Version = expectedVersion
	err := r.UpdateHeader(ctx, o)
	o.Version = saved
	if err != nil {
		if apperror.IsConcurrentModification(err) {
			return apperror.NewConcurrentModification("sales order", o.ID)
		}
		return err
	}

	return replaceItems(ctx, r.Querier(ctx), salesItemTable, "order_id", o.ID, o.Items)
}

// List returns orders matching the filter plus the total count.
// Items are not loaded for listings.
func (r *SalesOrderRepo) List(ctx context.Context, filter sales.ListFilter) ([]*sales.Order, int64, error) {
	var conds []squirrel.Sqlizer
	conds = append(conds, squirrel.Eq{"deletion_mark": false})
	if filter.CustomerID != nil {
		conds = append(conds, squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.UnitID != nil {
		conds = append(conds, squirrel.Eq{"unit_id": *filter.UnitID})
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *filter.Status})
	}
	if filter.FromDate != nil {
		conds = append(conds, squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		conds = append(conds, squirrel.Lt{"date": *filter.ToDate})
	}

	q := r.baseSelect().OrderBy("date DESC", "number DESC")
	countQ := r.Builder().Select("COUNT(*)").From(salesOrderTable)
	for _, c := range conds {
		q = q.Where(c)
		countQ = countQ.Where(c)
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.Querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales orders: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	var orders []*sales.Order
	if err := pgxscan.Select(ctx, r.Querier(ctx), &orders, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list sales orders: %w", err)
	}

	return orders, total, nil
}

func prepSalesItems(o *sales.Order) {
	for i := range o.Items {
		item := &o.Items[i]
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.OrderID = o.ID
	}
}
