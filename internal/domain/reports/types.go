// Package reports provides financial and stock report generation.
package reports

import (
	"time"

	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// --- Cash Flow Summary ---

// CashFlowSummaryFilter defines the period and scope of a summary.
type CashFlowSummaryFilter struct {
	FromDate time.Time
	ToDate   time.Time
	UnitID   *id.ID
	Category *string
}

// CategoryTotal is one category line in the summary.
type CategoryTotal struct {
	Category string      `json:"category"`
	Type     string      `json:"type"` // INCOME or EXPENSE
	Total    types.Money `json:"total"`
}

// CashFlowSummary aggregates realized income and expenses for a period.
type CashFlowSummary struct {
	FromDate time.Time `json:"fromDate"`
	ToDate   time.Time `json:"toDate"`

	TotalIncome  types.Money `json:"totalIncome"`
	TotalExpense types.Money `json:"totalExpense"`
	NetFlow      types.Money `json:"netFlow"`

	ByCategory []CategoryTotal `json:"byCategory"`
}

// --- DRE (income statement) ---

// DREFilter defines the period of the income statement.
type DREFilter struct {
	FromDate time.Time
	ToDate   time.Time
	UnitID   *id.ID
}

// DREAggregates are the raw sums the statement derives from.
type DREAggregates struct {
	GrossRevenue      types.Money
	Deductions        types.Money
	CMV               types.Money
	OperatingExpenses types.Money
}

// DREReport is the derived income statement.
// netRevenue = grossRevenue - deductions; grossProfit = netRevenue - CMV;
// netProfit = grossProfit - operatingExpenses.
type DREReport struct {
	FromDate time.Time `json:"fromDate"`
	ToDate   time.Time `json:"toDate"`

	GrossRevenue      types.Money `json:"grossRevenue"`
	Deductions        types.Money `json:"deductions"`
	NetRevenue        types.Money `json:"netRevenue"`
	CMV               types.Money `json:"cmv"`
	GrossProfit       types.Money `json:"grossProfit"`
	OperatingExpenses types.Money `json:"operatingExpenses"`
	NetProfit         types.Money `json:"netProfit"`

	// Margins as percentages of net revenue (zero when revenue is zero)
	GrossMarginPercent types.Money `json:"grossMarginPercent"`
	NetMarginPercent   types.Money `json:"netMarginPercent"`
}

// --- ABC analysis ---

// ABCMetric selects what contribution is ranked.
type ABCMetric string

const (
	MetricRevenue  ABCMetric = "revenue"
	MetricQuantity ABCMetric = "quantity"
	MetricProfit   ABCMetric = "profit"
)

// ABCFilter defines the period and classification boundaries.
type ABCFilter struct {
	FromDate time.Time
	ToDate   time.Time
	Metric   ABCMetric

	// Cumulative share boundaries in percent; zero values mean 80/95.
	ClassABoundary types.Money
	ClassBBoundary types.Money
}

// ProductContribution is a raw ranked value per product.
type ProductContribution struct {
	ProductID   id.ID       `json:"productId"`
	ProductName string      `json:"productName"`
	Value       types.Money `json:"value"`
}

// ABCItem is one classified row.
type ABCItem struct {
	ProductContribution

	SharePercent      types.Money `json:"sharePercent"`
	CumulativePercent types.Money `json:"cumulativePercent"`
	Class             string      `json:"class"` // A, B or C
}

// ABCReport is the full classification.
type ABCReport struct {
	FromDate time.Time `json:"fromDate"`
	ToDate   time.Time `json:"toDate"`
	Metric   ABCMetric `json:"metric"`

	Items []ABCItem `json:"items"`

	TotalValue types.Money `json:"totalValue"`
	CountA     int         `json:"countA"`
	CountB     int         `json:"countB"`
	CountC     int         `json:"countC"`
}

// --- Stock turnover ---

// TurnoverFilter defines the period and scope of the turnover report.
type TurnoverFilter struct {
	FromDate   time.Time
	ToDate     time.Time
	UnitID     *id.ID
	ProductIDs []id.ID
	Limit      int
	Offset     int
}

// TurnoverRow is the raw per-product data from the ledger.
type TurnoverRow struct {
	ProductID      id.ID          `json:"productId"`
	ProductName    string         `json:"productName"`
	OpeningBalance types.Quantity `json:"openingBalance"`
	Receipt        types.Quantity `json:"receipt"`
	Expense        types.Quantity `json:"expense"`
	UnitsSold      types.Quantity `json:"unitsSold"`
}

// TurnoverItem is one derived row: turnover rate = units sold / average
// stock; coverage days = average stock / average daily sales.
type TurnoverItem struct {
	TurnoverRow

	ClosingBalance types.Quantity `json:"closingBalance"`
	AverageStock   float64        `json:"averageStock"`
	TurnoverRate   float64        `json:"turnoverRate"`
	CoverageDays   float64        `json:"coverageDays"`
}

// TurnoverReport is the full turnover report.
type TurnoverReport struct {
	FromDate time.Time      `json:"fromDate"`
	ToDate   time.Time      `json:"toDate"`
	Items    []TurnoverItem `json:"items"`
}
