package balance

import (
	"time"

	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/shopspring/decimal"
)

type Account struct {
	Id          int
	UserId      int
	Name        string
	Amount      decimal.Decimal
	Currency    string
	CreditLimit *decimal.Decimal
	AccountType string
	Icon        string
	Color       string
	Notes       string
	LastUpdated time.Time
}

// AccountPatch carries the fields of an account update; nil fields stay unchanged.
type AccountPatch struct {
	Name        *string
	Amount      *decimal.Decimal
	Currency    *string
	CreditLimit *decimal.Decimal
	AccountType *string
	Icon        *string
	Color       *string
	Notes       *string
}

type Totals struct {
	Accounts      []Account
	TotalBalance  decimal.Decimal
	TotalAccounts int
}

// EntryInput is a requested posting against an account.
type EntryInput struct {
	Name     string
	Category string
	Amount   decimal.Decimal
	// Currency defaults to the account currency.
	Currency string
	// Date defaults to now.
	Date           time.Time
	Time           string
	FillForAllYear bool
}

type Posting struct {
	Entry   ledger.Entry
	Account Account
}
