package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain/orders/purchase"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrderTable = "doc_purchase_orders"
	purchaseItemTable  = "doc_purchase_order_items"
)

// PurchaseOrderRepo implements purchase.Repository on PostgreSQL.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase.Order]
}

// NewPurchaseOrderRepo creates a purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseOrderTable,
			postgres.ExtractDBColumns[purchase.Order](),
			func() *purchase.Order { return &purchase.Order{} },
		),
	}
}

// Create inserts the order header and its items.
func (r *PurchaseOrderRepo) Create(ctx context.Context, o *purchase.Order) error {
	prepPurchaseItems(o)
	if err := r.CreateHeader(ctx, o); err != nil {
		return err
	}
	return replaceItems(ctx, r.Querier(ctx), purchaseItemTable, "order_id", o.ID, o.Items)
}

// GetByID loads the order with its items.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	o, err := r.GetHeaderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := loadItems[purchase.Item](ctx, r.Querier(ctx), purchaseItemTable, "order_id", o.ID,
		postgres.ExtractDBColumns[purchase.Item]())
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// Update rewrites header and items guarded by the caller's expected version.
// The entity version field is overridden with the expected one so the header
// update only lands when no concurrent writer got in first.
func (r *PurchaseOrderRepo) Update(ctx context.Context, o *purchase.Order, expectedVersion int) error {
	prepPurchaseItems(o)

	saved := o.Version
	o.Version = expectedVersion
	err := r.UpdateHeader(ctx, o)
	o.Version = saved
	if err != nil {
		if apperror.IsConcurrentModification(err) {
			return apperror.NewConcurrentModification("purchase order", o.ID)
		}
		return err
	}

	return replaceItems(ctx, r.Querier(ctx), purchaseItemTable, "order_id", o.ID, o.Items)
}

// List returns orders matching the filter plus the total count.
// Items are not loaded for listings.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.Order, int64, error) {
	var conds []squirrel.Sqlizer
	conds = append(conds, squirrel.Eq{"deletion_mark": false})
	if filter.SupplierID != nil {
		conds = append(conds, squirrel.Eq{"supplier_id": *filter.SupplierID})
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
	countQ := r.Builder().Select("COUNT(*)").From(purchaseOrderTable)
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
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	var orders []*purchase.Order
	if err := pgxscan.Select(ctx, r.Querier(ctx), &orders, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}

	return orders, total, nil
}

func prepPurchaseItems(o *purchase.Order) {
	for i := range o.Items {
		item := &o.Items[i]
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.OrderID = o.ID
	}
}
