package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/core/apperror"
	"atelier/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// Service derives reports from raw aggregates.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetCashFlowSummary aggregates realized cash flow for a period.
func (s *Service) GetCashFlowSummary(ctx context.Context, filter CashFlowSummaryFilter) (CashFlowSummary, error) {
	summary := CashFlowSummary{
		FromDate:     filter.FromDate,
		ToDate:       filter.ToDate,
		TotalIncome:  types.Zero(),
		TotalExpense: types.Zero(),
	}

	if err := validatePeriod(filter.FromDate, filter.ToDate); err != nil {
		return summary, err
	}

	totals, err := s.repo.GetCashFlowTotals(ctx, filter)
	if err != nil {
		return summary, fmt.Errorf("cash flow totals: %w", err)
	}

	for _, t := range totals {
		if t.Type == "INCOME" {
			summary.TotalIncome = summary.TotalIncome.Add(t.Total)
		} else {
			summary.TotalExpense = summary.TotalExpense.Add(t.Total)
		}
	}
	summary.NetFlow = summary.TotalIncome.Sub(summary.TotalExpense)
	summary.ByCategory = totals

	return summary, nil
}

// GetDRE builds the income statement for a period.
func (s *Service) GetDRE(ctx context.Context, filter DREFilter) (DREReport, error) {
	report := DREReport{FromDate: filter.FromDate, ToDate: filter.ToDate}

	if err := validatePeriod(filter.FromDate, filter.ToDate); err != nil {
		return report, err
	}

	agg, err := s.repo.GetDREAggregates(ctx, filter)
	if err != nil {
		return report, fmt.Errorf("dre aggregates: %w", err)
	}

	report.GrossRevenue = agg.GrossRevenue
	report.Deductions = agg.Deductions
	report.NetRevenue = agg.GrossRevenue.Sub(agg.Deductions)
	report.CMV = agg.CMV
	report.GrossProfit = report.NetRevenue.Sub(agg.CMV)
	report.OperatingExpenses = agg.OperatingExpenses
	report.NetProfit = report.GrossProfit.Sub(agg.OperatingExpenses)

	if report.NetRevenue.IsPositive() {
		report.GrossMarginPercent = report.GrossProfit.Div(report.NetRevenue).Mul(hundred).Round(2)
		report.NetMarginPercent = report.NetProfit.Div(report.NetRevenue).Mul(hundred).Round(2)
	} else {
		report.GrossMarginPercent = types.Zero()
		report.NetMarginPercent = types.Zero()
	}

	return report, nil
}

// GetABCAnalysis classifies products by cumulative contribution.
// Defaults: class A up to 80% cumulative share, class B up to 95%, the
// remainder is class C.
func (s *Service) GetABCAnalysis(ctx context.Context, filter ABCFilter) (ABCReport, error) {
	report := ABCReport{
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
		Metric:     filter.Metric,
		TotalValue: types.Zero(),
	}

	if err := validatePeriod(filter.FromDate, filter.ToDate); err != nil {
		return report, err
	}

	switch filter.Metric {
	case "", MetricRevenue:
		filter.Metric = MetricRevenue
	case MetricQuantity, MetricProfit:
	default:
		return report, apperror.NewValidation("invalid ABC metric").
			WithDetail("metric", string(filter.Metric))
	}
	report.Metric = filter.Metric

	boundaryA := filter.ClassABoundary
	if boundaryA.IsZero() {
		boundaryA = decimal.NewFromInt(80)
	}
	boundaryB := filter.ClassBBoundary
	if boundaryB.IsZero() {
		boundaryB = decimal.NewFromInt(95)
	}
	if boundaryB.LessThan(boundaryA) {
		return report, apperror.NewValidation("class B boundary must not be below class A boundary")
	}

	contributions, err := s.repo.GetProductContributions(ctx, filter)
	if err != nil {
		return report, fmt.Errorf("product contributions: %w", err)
	}

	// Defensive re-sort: classification depends on descending order.
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].Value.GreaterThan(contributions[j].Value)
	})

	total := types.Zero()
	for _, c := range contributions {
		total = total.Add(c.Value)
	}
	report.TotalValue = total

	if !total.IsPositive() {
		return report, nil
	}

	cumulative := types.Zero()
	for _, c := range contributions {
		cumulative = cumulative.Add(c.Value)
		share := c.Value.Div(total).Mul(hundred)
		cumShare := cumulative.Div(total).Mul(hundred)

		item := ABCItem{
			ProductContribution: c,
			SharePercent:        share.Round(2),
			CumulativePercent:   cumShare.Round(2),
		}
		switch {
		case cumShare.LessThanOrEqual(boundaryA):
			item.Class = "A"
			report.CountA++
		case cumShare.LessThanOrEqual(boundaryB):
			item.Class = "B"
			report.CountB++
		default:
			item.Class = "C"
			report.CountC++
		}
		report.Items = append(report.Items, item)
	}

	return report, nil
}

// GetStockTurnover builds the turnover report.
func (s *Service) GetStockTurnover(ctx context.Context, filter TurnoverFilter) (TurnoverReport, error) {
	report := TurnoverReport{FromDate: filter.FromDate, ToDate: filter.ToDate}

	if err := validatePeriod(filter.FromDate, filter.ToDate); err != nil {
		return report, err
	}

	rows, err := s.repo.GetTurnoverRows(ctx, filter)
	if err != nil {
		return report, fmt.Errorf("turnover rows: %w", err)
	}

	periodDays := filter.ToDate.Sub(filter.FromDate).Hours() / 24
	if periodDays < 1 {
		periodDays = 1
	}

	for _, row := range rows {
		item := TurnoverItem{TurnoverRow: row}
		item.ClosingBalance = row.OpeningBalance + row.Receipt - row.Expense
		item.AverageStock = (row.OpeningBalance.Float64() + item.ClosingBalance.Float64()) / 2

		if item.AverageStock > 0 {
			item.TurnoverRate = row.UnitsSold.Float64() / item.AverageStock
			dailySales := row.UnitsSold.Float64() / periodDays
			if dailySales > 0 {
				item.CoverageDays = item.AverageStock / dailySales
			}
		}

		report.Items = append(report.Items, item)
	}

	return report, nil
}

func validatePeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return apperror.NewValidation("report period is required").
			WithDetail("field", "fromDate")
	}
	if !to.After(from) {
		return apperror.NewValidation("period end must be after period start").
			WithDetail("field", "toDate")
	}
	return nil
}
