package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain/transfers"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	transferTable     = "doc_transfers"
	transferItemTable = "doc_transfer_items"
)

// TransferRepo implements transfers.Repository on PostgreSQL.
type TransferRepo struct {
	*BaseDocumentRepo[*transfers.Transfer]
}

// NewTransferRepo creates a transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			transferTable,
			postgres.ExtractDBColumns[transfers.Transfer](),
			func() *transfers.Transfer { return &transfers.Transfer{} },
		),
	}
}

// Create inserts the transfer header and its items.
func (r *TransferRepo) Create(ctx context.Context, t *transfers.Transfer) error {
	prepTransferItems(t)
	if err := r.CreateHeader(ctx, t); err != nil {
		return err
	}
	return replaceItems(ctx, r.Querier(ctx), transferItemTable, "transfer_id", t.ID, t.Items)
}

// GetByID loads the transfer with its items.
func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfers.Transfer, error) {
	t, err := r.GetHeaderByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	items, err := loadItems[transfers.Item](ctx, r.Querier(ctx), transferItemTable, "transfer_id", t.ID,
		postgres.ExtractDBColumns[transfers.Item]())
	if err != nil {
		return nil, err
	}
	t.Items = items
	return t, nil
}

// Update rewrites header and items guarded by the caller's expected version.
// The entity version field is overridden with the expected one so the header
// update only lands when no concurrent writer got in first.
func (r *TransferRepo) Update(ctx context.Context, t *transfers.Transfer, expectedVersion int) error {
	prepTransferItems(t)

	saved := t.Version
	t.Version = expectedVersion
	err := r.UpdateHeader(ctx, t)
	t.Version = saved
	if err != nil {
		if apperror.IsConcurrentModification(err) {
			return apperror.NewConcurrentModification("transfer", t.ID)
		}
		return err
	}

	return replaceItems(ctx, r.Querier(ctx), transferItemTable, "transfer_id", t.ID, t.Items)
}

// List returns transfers matching the filter plus the total count.
// Items are not loaded for listings.
func (r *TransferRepo) List(ctx context.Context, filter transfers.ListFilter) ([]*transfers.Transfer, int64, error) {
	var conds []squirrel.Sqlizer
	conds = append(conds, squirrel.Eq{"deletion_mark": false})
	if filter.FromUnitID != nil {
		conds = append(conds, squirrel.Eq{"from_unit_id": *filter.FromUnitID})
	}
	if filter.ToUnitID != nil {
		conds = append(conds, squirrel.Eq{"to_unit_id": *filter.ToUnitID})
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
	countQ := r.Builder().Select("COUNT(*)").From(transferTable)
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
		return nil, 0, fmt.Errorf("count transfers: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	var result []*transfers.Transfer
	if err := pgxscan.Select(ctx, r.Querier(ctx), &result, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list transfers: %w", err)
	}

	return result, total, nil
}

func prepTransferItems(t *transfers.Transfer) {
	for i := range t.Items {
		item := &t.Items[i]
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.TransferID = t.ID
	}
}
