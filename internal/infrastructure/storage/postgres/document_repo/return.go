package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain/returns"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	returnTable     = "doc_returns"
	returnItemTable = "doc_return_items"
)

// ReturnRepo implements returns.Repository on PostgreSQL.
type ReturnRepo struct {
	*BaseDocumentRepo[*returns.Return]
}

// NewReturnRepo creates a return repository.
func NewReturnRepo(txManager *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			returnTable,
			postgres.ExtractDBColumns[returns.Return](),
			func() *returns.Return { return &returns.Return{} },
		),
	}
}

// Create inserts the return header and its items.
func (r *ReturnRepo) Create(ctx context.Context, ret *returns.Return) error {
	prepReturnItems(ret)
	if err := r.CreateHeader(ctx, ret); err != nil {
		return err
	}
	return replaceItems(ctx, r.Querier(ctx), returnItemTable, "return_id", ret.ID, ret.Items)
}

// GetByID loads the return with its items.
func (r *ReturnRepo) GetByID(ctx context.Context, returnID id.ID) (*returns.Return, error) {
	ret, err := r.GetHeaderByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	items, err := loadItems[returns.Item](ctx, r.Querier(ctx), returnItemTable, "return_id", ret.ID,
		postgres.ExtractDBColumns[returns.Item]())
	if err != nil {
		return nil, err
	}
	ret.Items = items
	return ret, nil
}

// Update rewrites header and items guarded by the caller's expected version.
// The entity version field is overridden with the expected one so the header
// update only lands when no concurrent writer got in first.
func (r *ReturnRepo) Update(ctx context.Context, ret *returns.Return, expectedVersion int) error {
	prepReturnItems(ret)

	saved := ret.Version
	ret.Version = expectedVersion
	err := r.UpdateHeader(ctx, ret)
	ret.Version = saved
	if err != nil {
		if apperror.IsConcurrentModification(err) {
			return apperror.NewConcurrentModification("return", ret.ID)
		}
		return err
	}

	return replaceItems(ctx, r.Querier(ctx), returnItemTable, "return_id", ret.ID, ret.Items)
}

// List returns documents matching the filter plus the total count.
// Items are not loaded for listings.
func (r *ReturnRepo) List(ctx context.Context, filter returns.ListFilter) ([]*returns.Return, int64, error) {
	var conds []squirrel.Sqlizer
	conds = append(conds, squirrel.Eq{"deletion_mark": false})
	if filter.CustomerID != nil {
		conds = append(conds, squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		conds = append(conds, squirrel.Eq{"type": *filter.Type})
	}
	if filter.FromDate != nil {
		conds = append(conds, squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		conds = append(conds, squirrel.Lt{"date": *filter.ToDate})
	}

	q := r.baseSelect().OrderBy("date DESC", "number DESC")
	countQ := r.Builder().Select("COUNT(*)").From(returnTable)
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
		return nil, 0, fmt.Errorf("count returns: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	var result []*returns.Return
	if err := pgxscan.Select(ctx, r.Querier(ctx), &result, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list returns: %w", err)
	}

	return result, total, nil
}

func prepReturnItems(ret *returns.Return) {
	for i := range ret.Items {
		item := &ret.Items[i]
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.ReturnID = ret.ID
	}
}
