package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

type stubRepo struct {
	totals        []CategoryTotal
	dre           DREAggregates
	contributions []ProductContribution
	turnover      []TurnoverRow
}

func (r *stubRepo) GetCashFlowTotals(ctx context.Context, f CashFlowSummaryFilter) ([]CategoryTotal, error) {
	return r.totals, nil
}

func (r *stubRepo) GetDREAggregates(ctx context.Context, f DREFilter) (DREAggregates, error) {
	return r.dre, nil
}

func (r *stubRepo) GetProductContributions(ctx context.Context, f ABCFilter) ([]ProductContribution, error) {
	return r.contributions, nil
}

func (r *stubRepo) GetTurnoverRows(ctx context.Context, f TurnoverFilter) ([]TurnoverRow, error) {
	return r.turnover, nil
}

func period() (time.Time, time.Time) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func TestGetCashFlowSummary(t *testing.T) {
	from, to := period()
	repo := &stubRepo{totals: []CategoryTotal{
		{Category: "sales", Type: "INCOME", Total: types.MustMoney("1000")},
		{Category: "rent", Type: "EXPENSE", Total: types.MustMoney("300")},
		{Category: "salaries", Type: "EXPENSE", Total: types.MustMoney("450")},
	}}
	svc := NewService(repo)

	summary, err := svc.GetCashFlowSummary(context.Background(), CashFlowSummaryFilter{FromDate: from, ToDate: to})
	require.NoError(t, err)

	assert.True(t, summary.TotalIncome.Equal(types.MustMoney("1000")))
	assert.True(t, summary.TotalExpense.Equal(types.MustMoney("750")))
	assert.True(t, summary.NetFlow.Equal(types.MustMoney("250")))
	assert.Len(t, summary.ByCategory, 3)
}

func TestGetDRE(t *testing.T) {
	from, to := period()
	repo := &stubRepo{dre: DREAggregates{
		GrossRevenue:      types.MustMoney("10000"),
		Deductions:        types.MustMoney("1000"),
		CMV:               types.MustMoney("4500"),
		OperatingExpenses: types.MustMoney("2500"),
	}}
	svc := NewService(repo)

	report, err := svc.GetDRE(context.Background(), DREFilter{FromDate: from, ToDate: to})
	require.NoError(t, err)

	assert.True(t, report.NetRevenue.Equal(types.MustMoney("9000")))
	assert.True(t, report.GrossProfit.Equal(types.MustMoney("4500")))
	assert.True(t, report.NetProfit.Equal(types.MustMoney("2000")))
	assert.True(t, report.GrossMarginPercent.Equal(types.MustMoney("50")))
	assert.True(t, report.NetMarginPercent.Equal(types.MustMoney("22.22")))
}

func TestGetABCAnalysis_Classification(t *testing.T) {
	from, to := period()

	// Contributions: 500, 300, 150, 40, 10 (total 1000).
	// Cumulative: 50%, 80%, 95%, 99%, 100% -> A, A, B, C, C.
	mk := func(v string) ProductContribution {
		return ProductContribution{ProductID: id.New(), Value: types.MustMoney(v)}
	}
	repo := &stubRepo{contributions: []ProductContribution{
		mk("500"), mk("300"), mk("150"), mk("40"), mk("10"),
	}}
	svc := NewService(repo)

	report, err := svc.GetABCAnalysis(context.Background(), ABCFilter{FromDate: from, ToDate: to})
	require.NoError(t, err)

	require.Len(t, report.Items, 5)
	classes := make([]string, len(report.Items))
	for i, item := range report.Items {
		classes[i] = item.Class
	}
	assert.Equal(t, []string{"A", "A", "B", "C", "C"}, classes)
	assert.Equal(t, 2, report.CountA)
	assert.Equal(t, 1, report.CountB)
	assert.Equal(t, 2, report.CountC)
	assert.True(t, report.TotalValue.Equal(types.MustMoney("1000")))

	assert.True(t, report.Items[0].SharePercent.Equal(types.MustMoney("50")))
	assert.True(t, report.Items[1].CumulativePercent.Equal(types.MustMoney("80")))
}

func TestGetABCAnalysis_EmptyAndInvalid(t *testing.T) {
	from, to := period()
	svc := NewService(&stubRepo{})

	report, err := svc.GetABCAnalysis(context.Background(), ABCFilter{FromDate: from, ToDate: to})
	require.NoError(t, err)
	assert.Empty(t, report.Items)

	_, err = svc.GetABCAnalysis(context.Background(), ABCFilter{FromDate: from, ToDate: to, Metric: "nonsense"})
	require.Error(t, err)

	_, err = svc.GetABCAnalysis(context.Background(), ABCFilter{FromDate: to, ToDate: from})
	require.Error(t, err)
}

func TestGetStockTurnover(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)

	repo := &stubRepo{turnover: []TurnoverRow{{
		ProductID:      id.New(),
		OpeningBalance: types.NewQuantityFromInt(40),
		Receipt:        types.NewQuantityFromInt(20),
		Expense:        types.NewQuantityFromInt(30),
		UnitsSold:      types.NewQuantityFromInt(30),
	}}}
	svc := NewService(repo)

	report, err := svc.GetStockTurnover(context.Background(), TurnoverFilter{FromDate: from, ToDate: to})
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	item := report.Items[0]
	// closing = 40 + 20 - 30 = 30; average = (40+30)/2 = 35.
	assert.Equal(t, types.NewQuantityFromInt(30), item.ClosingBalance)
	assert.InDelta(t, 35, item.AverageStock, 0.001)
	// turnover = 30 / 35; coverage = 35 / (30/30 days) = 35 days.
	assert.InDelta(t, 30.0/35.0, item.TurnoverRate, 0.001)
	assert.InDelta(t, 35, item.CoverageDays, 0.001)
}
