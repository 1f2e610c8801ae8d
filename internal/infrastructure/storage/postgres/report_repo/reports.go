// Package report_repo provides the PostgreSQL aggregates behind the report
// services: cash flow summary, income statement, ABC ranking and stock
// turnover.
package report_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/types"
	"atelier/internal/domain/reports"
	"atelier/internal/infrastructure/storage/postgres"
)

// revenueStatuses are the sales order states counted as realized revenue.
var revenueStatuses = []string{"CONFIRMED", "PROCESSING", "SHIPPED", "DELIVERED"}

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
}

// NewReportRepo creates a report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

func (r *ReportRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ReportRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// GetCashFlowTotals sums realized entries in the period by category and type.
func (r *ReportRepo) GetCashFlowTotals(ctx context.Context, filter reports.CashFlowSummaryFilter) ([]reports.CategoryTotal, error) {
	q := r.builder().
		Select("category", "type", "COALESCE(SUM(amount), 0) AS total").
		From("fin_cash_flow_entries").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.GtOrEq{"date": filter.FromDate}).
		Where(squirrel.Lt{"date": filter.ToDate}).
		GroupBy("category", "type").
		OrderBy("total DESC")
	if filter.UnitID != nil {
		q = q.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	if filter.Category != nil {
		q = q.Where(squirrel.Eq{"category": *filter.Category})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var totals []reports.CategoryTotal
	if err := pgxscan.Select(ctx, r.querier(ctx), &totals, sql, args...); err != nil {
		return nil, fmt.Errorf("cash flow totals: %w", err)
	}
	return totals, nil
}

// GetDREAggregates sums the raw figures of the income statement.
// Gross revenue is the item subtotal of confirmed-or-later sales orders in
// the period. Deductions are order discounts plus processed return refunds.
// CMV comes from the costed sale movements in the stock ledger, operating
// expenses from realized EXPENSE cash flow entries.
func (r *ReportRepo) GetDREAggregates(ctx context.Context, filter reports.DREFilter) (reports.DREAggregates, error) {
	var agg reports.DREAggregates

	salesQ := r.builder().
		Select("COALESCE(SUM(subtotal), 0)", "COALESCE(SUM(discount), 0)").
		From("doc_sales_orders").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"status": revenueStatuses}).
		Where(squirrel.GtOrEq{"date": filter.FromDate}).
		Where(squirrel.Lt{"date": filter.ToDate})
	if filter.UnitID != nil {
		salesQ = salesQ.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	sql, args, err := salesQ.ToSql()
	if err != nil {
		return agg, fmt.Errorf("build sales query: %w", err)
	}
	var discounts types.Money
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&agg.GrossRevenue, &discounts); err != nil {
		return agg, fmt.Errorf("sum sales: %w", err)
	}

	refundsQ := r.builder().
		Select("COALESCE(SUM(refund_amount), 0)").
		From("doc_returns").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"status": "PROCESSED"}).
		Where(squirrel.GtOrEq{"date": filter.FromDate}).
		Where(squirrel.Lt{"date": filter.ToDate})
	if filter.UnitID != nil {
		refundsQ = refundsQ.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	sql, args, err = refundsQ.ToSql()
	if err != nil {
		return agg, fmt.Errorf("build refunds query: %w", err)
	}
	var refunds types.Money
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&refunds); err != nil {
		return agg, fmt.Errorf("sum refunds: %w", err)
	}
	agg.Deductions = discounts.Add(refunds)

	cmvQ := r.builder().
		Select("COALESCE(SUM(total_cost), 0)").
		From("reg_stock_movements").
		Where(squirrel.Eq{"type": "OUT"}).
		Where(squirrel.Eq{"reason": "sale"}).
		Where(squirrel.GtOrEq{"created_at": filter.FromDate}).
		Where(squirrel.Lt{"created_at": filter.ToDate})
	if filter.UnitID != nil {
		cmvQ = cmvQ.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	sql, args, err = cmvQ.ToSql()
	if err != nil {
		return agg, fmt.Errorf("build cmv query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&agg.CMV); err != nil {
		return agg, fmt.Errorf("sum cmv: %w", err)
	}

	opExQ := r.builder().
		Select("COALESCE(SUM(amount), 0)").
		From("fin_cash_flow_entries").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"type": "EXPENSE"}).
		Where(squirrel.GtOrEq{"date": filter.FromDate}).
		Where(squirrel.Lt{"date": filter.ToDate})
	if filter.UnitID != nil {
		opExQ = opExQ.Where(squirrel.Eq{"unit_id": *filter.UnitID})
	}
	sql, args, err = opExQ.ToSql()
	if err != nil {
		return agg, fmt.Errorf("build expenses query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&agg.OperatingExpenses); err != nil {
		return agg, fmt.Errorf("sum expenses: %w", err)
	}

	return agg, nil
}

// GetProductContributions returns per-product totals for the chosen metric,
// sorted descending, over confirmed-or-later sales orders in the period.
func (r *ReportRepo) GetProductContributions(ctx context.Context, filter reports.ABCFilter) ([]reports.ProductContribution, error) {
	var metricExpr string
	switch filter.Metric {
	case reports.MetricRevenue:
		metricExpr = "COALESCE(SUM(i.total_price), 0)"
	case reports.MetricQuantity:
		metricExpr = "COALESCE(SUM(i.quantity), 0)::numeric / 10000"
	case reports.MetricProfit:
		metricExpr = "COALESCE(SUM(i.total_price - (i.quantity::numeric / 10000) * p.cost_price), 0)"
	default:
		return nil, apperror.NewValidation("unknown metric").
			WithDetail("metric", string(filter.Metric))
	}

	q := r.builder().
		Select(
			"i.product_id",
			"p.name AS product_name",
			metricExpr+" AS value",
		).
		From("doc_sales_order_items i").
		Join("doc_sales_orders o ON o.id = i.order_id").
		Join("cat_products p ON p.id = i.product_id").
		Where(squirrel.Eq{"o.deletion_mark": false}).
		Where(squirrel.Eq{"o.status": revenueStatuses}).
		Where(squirrel.GtOrEq{"o.date": filter.FromDate}).
		Where(squirrel.Lt{"o.date": filter.ToDate}).
		GroupBy("i.product_id", "p.name").
		OrderBy("value DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var contributions []reports.ProductContribution
	if err := pgxscan.Select(ctx, r.querier(ctx), &contributions, sql, args...); err != nil {
		return nil, fmt.Errorf("product contributions: %w", err)
	}
	return contributions, nil
}

// GetTurnoverRows returns per-product ledger sums for the period: opening
// balance from the signed movement history before the period, receipts and
// expenses inside it. Adjustments carry their delta in new minus previous
// stock.
func (r *ReportRepo) GetTurnoverRows(ctx context.Context, filter reports.TurnoverFilter) ([]reports.TurnoverRow, error) {
	var sb strings.Builder
	args := []any{filter.FromDate, filter.ToDate}

	sb.WriteString(`
		SELECT
			m.product_id,
			p.name AS product_name,
			COALESCE(SUM(
				CASE m.type
					WHEN 'IN' THEN m.quantity
					WHEN 'OUT' THEN -m.quantity
					ELSE m.new_stock - m.previous_stock
				END
			) FILTER (WHERE m.created_at < $1), 0)::bigint AS opening_balance,
			COALESCE(SUM(m.quantity) FILTER (
				WHERE m.type = 'IN' AND m.created_at >= $1 AND m.created_at < $2
			), 0)::bigint AS receipt,
			COALESCE(SUM(m.quantity) FILTER (
				WHERE m.type = 'OUT' AND m.created_at >= $1 AND m.created_at < $2
			), 0)::bigint AS expense,
			COALESCE(SUM(m.quantity) FILTER (
				WHERE m.type = 'OUT' AND m.reason = 'sale'
					AND m.created_at >= $1 AND m.created_at < $2
			), 0)::bigint AS units_sold
		FROM reg_stock_movements m
		JOIN cat_products p ON p.id = m.product_id
		WHERE m.created_at < $2`)

	if filter.UnitID != nil {
		args = append(args, *filter.UnitID)
		fmt.Fprintf(&sb, " AND m.unit_id = $%d", len(args))
	}
	if len(filter.ProductIDs) > 0 {
		args = append(args, filter.ProductIDs)
		fmt.Fprintf(&sb, " AND m.product_id = ANY($%d)", len(args))
	}

	sb.WriteString(`
		GROUP BY m.product_id, p.name
		ORDER BY units_sold DESC, p.name ASC`)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	var rows []reports.TurnoverRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("turnover rows: %w", err)
	}
	return rows, nil
}
