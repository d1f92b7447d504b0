package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/klokku/cycleledger/internal/event_bus"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyCall struct {
	userId      int
	title, body string
	data        map[string]string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) Notify(ctx context.Context, userId int, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{userId: userId, title: title, body: body, data: data})
	return nil
}

func TestTransactionNotifier(t *testing.T) {
	posted := event_bus.EntryPosted{
		EntryId:   11,
		UserId:    4,
		AccountId: 2,
		Name:      "Salary",
		Category:  "Job",
		Amount:    decimal.RequireFromString("1200"),
		Currency:  "USD",
		Date:      time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
	}

	t.Run("should notify about income", func(t *testing.T) {
		// given
		bus := event_bus.NewEventBus()
		notifier := &recordingNotifier{}
		NewTransactionNotifier(notifier).Register(bus)
		income := posted
		income.Kind = string(ledger.Income)
		income.BalanceAfter = decimal.RequireFromString("1500.5")

		// when
		err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.EntryPostedType, income))

		// then
		require.NoError(t, err)
		require.Len(t, notifier.calls, 1)
		call := notifier.calls[0]
		assert.Equal(t, 4, call.userId)
		assert.Equal(t, "Income added", call.title)
		assert.Equal(t, "1200.00 USD was added to your balance (Salary). New balance: 1500.50 USD.", call.body)
		assert.Equal(t, map[string]string{
			"notifType": TransactionNotificationType,
			"entryId":   "11",
			"accountId": "2",
			"kind":      "INCOME",
			"route":     "/balance",
		}, call.data)
	})

	t.Run("should notify about spending", func(t *testing.T) {
		bus := event_bus.NewEventBus()
		notifier := &recordingNotifier{}
		NewTransactionNotifier(notifier).Register(bus)
		spending := posted
		spending.Kind = string(ledger.Spending)
		spending.Category = "Food"
		spending.Amount = decimal.RequireFromString("45.3")
		spending.BalanceAfter = decimal.RequireFromString("954.7")

		require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.EntryPostedType, spending)))

		require.Len(t, notifier.calls, 1)
		assert.Equal(t, "Spending recorded", notifier.calls[0].title)
		assert.Equal(t, "You spent 45.30 USD on Food. Remaining balance: 954.70 USD.", notifier.calls[0].body)
	})
}
