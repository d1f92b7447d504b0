package goal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	InProgress Status = "IN_PROGRESS"
	Completed  Status = "COMPLETED"
)

var hundred = decimal.NewFromInt(100)

type Goal struct {
	Id                int
	UserId            int
	Name              string
	TargetAmount      decimal.Decimal
	AccumulatedAmount decimal.Decimal
	Currency          string
	Category          string
	Status            Status
	Icon              string
	Color             string
	TargetDate        *time.Time
	Notes             string
	CreatedAt         time.Time
}

// AmountLeft is never negative.
func (g Goal) AmountLeft() decimal.Decimal {
	left := g.TargetAmount.Sub(g.AccumulatedAmount)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// ProgressPercentage is the whole percentage of the target reached, capped at 100.
func (g Goal) ProgressPercentage() int {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	progress := int(g.AccumulatedAmount.Div(g.TargetAmount).Mul(hundred).Round(0).IntPart())
	return min(100, progress)
}

type GoalPatch struct {
	Name         *string
	TargetAmount *decimal.Decimal
	Currency     *string
	Category     *string
	Icon         *string
	Color        *string
	TargetDate   *time.Time
	Notes        *string
}

type Overview struct {
	Goals     []Goal
	TotalLeft decimal.Decimal
	Completed int
	Total     int
}

func (o Overview) FulfilledGoals() string {
	return fmt.Sprintf("%d/%d", o.Completed, o.Total)
}

// Totals are lifetime sums over every goal of a user.
type Totals struct {
	Accumulated decimal.Decimal
	Target      decimal.Decimal
	Completed   int
	Total       int
}
