// Package finance_repo provides the PostgreSQL implementation of the finance
// repository: payable/receivable accounts and realized cash flow entries.
package finance_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain/finance"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	accountTable  = "fin_accounts"
	cashFlowTable = "fin_cash_flow_entries"
)

// FinanceRepo implements finance.Repository.
type FinanceRepo struct {
	txManager *postgres.TxManager

	accountCols  []string
	cashFlowCols []string
}

// NewFinanceRepo creates a finance repository.
func NewFinanceRepo(txManager *postgres.TxManager) *FinanceRepo {
	return &FinanceRepo{
		txManager:    txManager,
		accountCols:  postgres.ExtractDBColumns[finance.Account](),
		cashFlowCols: postgres.ExtractDBColumns[finance.CashFlowEntry](),
	}
}

func (r *FinanceRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *FinanceRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// CreateAccount inserts a new account.
func (r *FinanceRepo) CreateAccount(ctx context.Context, a *finance.Account) error {
	return r.insert(ctx, accountTable, postgres.StructToMap(a))
}

// GetAccountByID retrieves an account.
func (r *FinanceRepo) GetAccountByID(ctx context.Context, accountID id.ID) (*finance.Account, error) {
	return r.getAccount(ctx, accountID, false)
}

// GetAccountForUpdate retrieves an account with a row lock held for the
// duration of the surrounding transaction.
func (r *FinanceRepo) GetAccountForUpdate(ctx context.Context, accountID id.ID) (*finance.Account, error) {
	return r.getAccount(ctx, accountID, true)
}

func (r *FinanceRepo) getAccount(ctx context.Context, accountID id.ID, forUpdate bool) (*finance.Account, error) {
	q := r.builder().
		Select(r.accountCols...).
		From(accountTable).
		Where(squirrel.Eq{"id": accountID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a finance.Account
	if err := pgxscan.Get(ctx, r.querier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// UpdateAccount persists account changes guarded by the caller's expected
// version. Services mutate the loaded entity (including its version) before
// saving, so the WHERE predicate takes the version the row was read at.
func (r *FinanceRepo) UpdateAccount(ctx context.Context, a *finance.Account, expectedVersion int) error {
	data := postgres.StructToMap(a)
	data["version"] = expectedVersion
	return r.update(ctx, accountTable, "account", data)
}

// ListAccounts returns accounts matching the filter plus the total count.
func (r *FinanceRepo) ListAccounts(ctx context.Context, filter finance.AccountFilter) ([]*finance.Account, int64, error) {
	var conds []squirrel.Sqlizer
	conds = append(conds, squirrel.Eq{"deletion_mark": false})
	if filter.Kind != nil {
		conds = append(conds, squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.PartyID != nil {
		conds = append(conds, squirrel.Eq{"party_id": *filter.PartyID})
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *filter.Status})
	}
	if filter.Category != nil {
		conds = append(conds, squirrel.Eq{"category": *filter.Category})
	}
	if filter.DueFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"due_date": *filter.DueFrom})
	}
	if filter.DueTo != nil {
		conds = append(conds, squirrel.Lt{"due_date": *filter.DueTo})
	}

	q := r.builder().
		Select(r.accountCols...).
		From(accountTable).
		OrderBy("due_date ASC", "created_at ASC")
	countQ := r.builder().Select("COUNT(*)").From(accountTable)
	for _, c := range conds {
		q = q.Where(c)
		countQ = countQ.Where(c)
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	total, err := r.count(ctx, countQ)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	var accounts []*finance.Account
	if err := pgxscan.Select(ctx, r.querier(ctx), &accounts, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, total, nil
}

// CreateCashFlowEntry inserts a new cash flow entry.
func (r *FinanceRepo) CreateCashFlowEntry(ctx context.Context, e *finance.CashFlowEntry) error {
	return r.insert(ctx, cashFlowTable, postgres.StructToMap(e))
}

// GetCashFlowEntryByID retrieves a cash flow entry.
func (r *FinanceRepo) GetCashFlowEntryByID(ctx context.Context, entryID id.ID) (*finance.CashFlowEntry, error) {
	q := r.builder().
		Select(r.cashFlowCols...).
		From(cashFlowTable).
		Where(squirrel.Eq{"id": entryID}).
		Where(squirrel.Eq{"deletion_mark": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e finance.CashFlowEntry
	if err := pgxscan.Get(ctx, r.querier(ctx), &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("cash flow entry", entryID.String())
		}
		return nil, fmt.Errorf("get cash flow entry: %w", err)
	}
	return &e, nil
}

// UpdateCashFlowEntry persists entry changes with optimistic locking.
func (r *FinanceRepo) UpdateCashFlowEntry(ctx context.Context, e *finance.CashFlowEntry) error {
	return r.update(ctx, cashFlowTable, "cash flow entry", postgres.StructToMap(e))
}

// DeleteCashFlowEntry soft-deletes an entry.
func (r *FinanceRepo) DeleteCashFlowEntry(ctx context.Context, entryID id.ID) error {
	q := r.builder().
		Update(cashFlowTable).
		Set("deletion_mark", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entryID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete cash flow entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("cash flow entry", entryID.String())
	}
	return nil
}

// ListCashFlowEntries returns entries matching the filter plus the total count.
func (r *FinanceRepo) ListCashFlowEntries(ctx context.Context, filter finance.CashFlowFilter) ([]*finance.CashFlowEntry, int64, error) {
	var conds []squirrel.Sqlizer
	conds = append(conds, squirrel.Eq{"deletion_mark": false})
	if filter.Type != nil {
		conds = append(conds, squirrel.Eq{"type": *filter.Type})
	}
	if filter.Category != nil {
		conds = append(conds, squirrel.Eq{"category": *filter.Category})
	}
	if filter.UnitID != nil {
		conds = append(conds, squirrel.Eq{"unit_id": *filter.UnitID})
	}
	if filter.FromDate != nil {
		conds = append(conds, squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		conds = append(conds, squirrel.Lt{"date": *filter.ToDate})
	}

	q := r.builder().
		Select(r.cashFlowCols...).
		From(cashFlowTable).
		OrderBy("date DESC", "created_at DESC")
	countQ := r.builder().Select("COUNT(*)").From(cashFlowTable)
	for _, c := range conds {
		q = q.Where(c)
		countQ = countQ.Where(c)
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	total, err := r.count(ctx, countQ)
	if err != nil {
		return nil, 0, fmt.Errorf("count cash flow entries: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	var entries []*finance.CashFlowEntry
	if err := pgxscan.Select(ctx, r.querier(ctx), &entries, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list cash flow entries: %w", err)
	}

	return entries, total, nil
}

func (r *FinanceRepo) insert(ctx context.Context, table string, data map[string]any) error {
	sql, args, err := r.builder().
		Insert(table).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *FinanceRepo) update(ctx context.Context, table, entityName string, data map[string]any) error {
	entityID := data["id"]
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	setData := make(map[string]any, len(data))
	for col, val := range data {
		switch col {
		case "id", "version", "created_at", "created_by", "updated_at":
			continue
		}
		setData[col] = val
	}

	q := r.builder().
		Update(table).
		SetMap(setData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(entityName, entityID)
	}
	return nil
}

func (r *FinanceRepo) count(ctx context.Context, countQ squirrel.SelectBuilder) (int64, error) {
	sql, args, err := countQ.ToSql()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
