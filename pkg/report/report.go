package report

import (
	"time"

	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// GoalProgress sums every goal of the user, independent of the report range.
type GoalProgress struct {
	Completed  decimal.Decimal
	Total      decimal.Decimal
	Percentage int
	Summary    string
}

type Item struct {
	Date     time.Time
	Kind     ledger.Kind
	Category string
	Name     string
	Amount   decimal.Decimal
}

type Entries struct {
	// All holds earning and spending items, newest first.
	All      []Item
	Earning  []Item
	Spending []Item
}

type Report struct {
	Range                   period.Range
	TotalEarning            decimal.Decimal
	TotalSpending           decimal.Decimal
	CurrentBalance          decimal.Decimal
	HighestSpendingCategory *CategoryAmount
	GoalProgress            GoalProgress
	Entries                 Entries
}
