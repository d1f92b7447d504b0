package budget

import (
	"slices"
	"time"

	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

// Thresholds are the spend percentages that trigger an alert, at most once per period.
var Thresholds = []int{50, 80, 100}

type Budget struct {
	Id          int
	UserId      int
	Category    string
	BudgetValue decimal.Decimal
	Currency    string
	Period      period.Kind
	// NotifiedThresholds lists the thresholds already alerted for the period starting at
	// ThresholdPeriodStart.
	NotifiedThresholds   []int
	ThresholdPeriodStart *time.Time
}

type BudgetPatch struct {
	Category    *string
	BudgetValue *decimal.Decimal
	Currency    *string
	Period      *period.Kind
}

type BudgetSpending struct {
	Id                 int
	Category           string
	BudgetValue        decimal.Decimal
	AmountSpent        decimal.Decimal
	SpendingPercentage decimal.Decimal
	Currency           string
}

type Evaluation struct {
	Period          period.Kind
	Range           period.Range
	TotalBudget     decimal.Decimal
	TotalSpent      decimal.Decimal
	TotalPercentage decimal.Decimal
	TotalCategories int
	Budgets         []BudgetSpending
}

type Alert struct {
	BudgetId   int
	UserId     int
	Category   string
	Threshold  int
	Percentage decimal.Decimal
	Spent      decimal.Decimal
	Limit      decimal.Decimal
	Currency   string
}

// advanceThresholds resets the record when a new period began and returns the thresholds
// reached by percentage that were not alerted yet, together with the updated budget.
func advanceThresholds(b Budget, periodStart time.Time, percentage decimal.Decimal) ([]int, Budget) {
	if b.ThresholdPeriodStart == nil || !b.ThresholdPeriodStart.Equal(periodStart) {
		start := periodStart
		b.ThresholdPeriodStart = &start
		b.NotifiedThresholds = []int{}
	} else {
		b.NotifiedThresholds = slices.Clone(b.NotifiedThresholds)
	}

	var fired []int
	for _, threshold := range Thresholds {
		if slices.Contains(b.NotifiedThresholds, threshold) {
			continue
		}
		if decimal.NewFromInt(int64(threshold)).LessThanOrEqual(percentage) {
			fired = append(fired, threshold)
			b.NotifiedThresholds = append(b.NotifiedThresholds, threshold)
		}
	}
	return fired, b
}
