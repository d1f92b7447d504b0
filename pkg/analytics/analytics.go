package analytics

import (
	"time"

	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

const NoTransactionsMessage = "No transactions found for this month"

type TrendPoint struct {
	Day     int
	Balance decimal.Decimal
}

// Trend is the reconstructed closing balance of every day of a monthly cycle. Points is
// nil when the cycle has no entries.
type Trend struct {
	Month            period.YearMonth
	Range            period.Range
	DaysInMonth      int
	CurrentBalance   decimal.Decimal
	StartBalance     decimal.Decimal
	GrowthPercentage decimal.Decimal
	Points           []TrendPoint
	Message          string
}

type MonthFlow struct {
	Month    time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

type YearOverview struct {
	Year               int
	Months             []MonthFlow
	TotalIncome        decimal.Decimal
	TotalExpenses      decimal.Decimal
	AvgMonthlyIncome   decimal.Decimal
	AvgMonthlyExpenses decimal.Decimal
}

type CategoryShare struct {
	Category   string
	Amount     decimal.Decimal
	Count      int
	Percentage decimal.Decimal
}

type CategoryBreakdown struct {
	Month         period.YearMonth
	Range         period.Range
	TotalSpending decimal.Decimal
	Categories    []CategoryShare
}
