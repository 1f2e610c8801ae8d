package reports

import "context"

// Repository supplies the raw aggregates reports derive from.
type Repository interface {
	// GetCashFlowTotals sums realized entries in the period by category.
	GetCashFlowTotals(ctx context.Context, filter CashFlowSummaryFilter) ([]CategoryTotal, error)

	// GetDREAggregates sums revenue, deductions, cost of goods sold and
	// operating expenses for the period.
	GetDREAggregates(ctx context.Context, filter DREFilter) (DREAggregates, error)

	// GetProductContributions returns per-product totals for the chosen
	// metric, sorted descending.
	GetProductContributions(ctx context.Context, filter ABCFilter) ([]ProductContribution, error)

	// GetTurnoverRows returns per-product ledger sums for the period.
	GetTurnoverRows(ctx context.Context, filter TurnoverFilter) ([]TurnoverRow, error)
}
