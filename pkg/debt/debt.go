package debt

import (
	"fmt"
	"strings"
	"time"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/shopspring/decimal"
)

// Direction tells who owes whom. BORROWED is money the user owes, LENT is money owed to the user.
type Direction string

const (
	Borrowed Direction = "BORROWED"
	Lent     Direction = "LENT"
)

type Status string

const (
	Unpaid Status = "UNPAID"
	Paid   Status = "PAID"
)

var ErrInvalidDirection = errs.New(errs.InvalidInput, "direction must be BORROWED or LENT")

var hundred = decimal.NewFromInt(100)

func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(value))) {
	case Borrowed:
		return Borrowed, nil
	case Lent:
		return Lent, nil
	}
	return "", ErrInvalidDirection
}

type Debt struct {
	Id        int
	UserId    int
	Direction Direction
	Name      string
	// Counterparty is the lender for borrowed money and the borrower for lent money.
	Counterparty string
	Amount       decimal.Decimal
	PaidAmount   decimal.Decimal
	Currency     string
	Status       Status
	Icon         string
	Color        string
	DebtDate     *time.Time
	PayoffDate   *time.Time
	Notes        string
	CreatedAt    time.Time
}

// AmountLeft is never negative.
func (d Debt) AmountLeft() decimal.Decimal {
	left := d.Amount.Sub(d.PaidAmount)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// PaymentPercentage is the whole percentage repaid, capped at 100.
func (d Debt) PaymentPercentage() int {
	if !d.Amount.IsPositive() {
		return 0
	}
	paid := int(d.PaidAmount.Div(d.Amount).Mul(hundred).Round(0).IntPart())
	return min(100, paid)
}

type DebtPatch struct {
	Name         *string
	Counterparty *string
	Amount       *decimal.Decimal
	Currency     *string
	Icon         *string
	Color        *string
	DebtDate     *time.Time
	PayoffDate   *time.Time
	Notes        *string
}

type Overview struct {
	Direction Direction
	Debts     []Debt
	TotalLeft decimal.Decimal
	Settled   int
	Total     int
}

// SettledRatio is rendered as "settled/total", e.g. "1/3".
func (o Overview) SettledRatio() string {
	return fmt.Sprintf("%d/%d", o.Settled, o.Total)
}
