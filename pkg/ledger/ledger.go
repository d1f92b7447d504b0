package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	Income   Kind = "INCOME"
	Spending Kind = "SPENDING"
)

// Entry is a single income or spending posting. Entries are append-only.
type Entry struct {
	Id        int64
	UserId    int
	AccountId int
	Kind      Kind
	Name      string
	Category  string
	Amount    decimal.Decimal
	Currency  string
	Date      time.Time
	// Time is the user supplied "HH:MM" label, kept apart from Date.
	Time           string
	FillForAllYear bool
}

type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

type DayTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

type MonthTotal struct {
	Month time.Month
	Total decimal.Decimal
}

type DailySummary struct {
	Date          time.Time
	TotalIncome   decimal.Decimal
	TotalSpending decimal.Decimal
}

type CycleSummary struct {
	Start         time.Time
	End           time.Time
	TotalIncome   decimal.Decimal
	TotalSpending decimal.Decimal
	Net           decimal.Decimal
}
