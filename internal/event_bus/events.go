package event_bus

import (
	"time"

	"github.com/shopspring/decimal"
)

const EntryPostedType EventType = "ledger.entry.posted"

// EntryPosted is published after a posting transaction commits.
type EntryPosted struct {
	EntryId   int64
	UserId    int
	AccountId int
	Kind      string
	Name      string
	Category  string
	Amount    decimal.Decimal
	Currency  string
	Date      time.Time
	// BalanceAfter is the account amount right after the posting.
	BalanceAfter decimal.Decimal
}
