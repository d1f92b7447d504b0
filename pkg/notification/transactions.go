package notification

import (
	"fmt"
	"strconv"

	"github.com/klokku/cycleledger/internal/event_bus"
	"github.com/klokku/cycleledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

const TransactionNotificationType = "TRANSACTION"

// TransactionNotifier tells the user about every committed posting.
type TransactionNotifier struct {
	notifier Notifier
}

func NewTransactionNotifier(notifier Notifier) *TransactionNotifier {
	return &TransactionNotifier{notifier: notifier}
}

func (t *TransactionNotifier) Register(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.EntryPostedType, t.handle)
}

func (t *TransactionNotifier) handle(e event_bus.EventT[event_bus.EntryPosted]) error {
	posted := e.Data
	title, body := transactionMessage(posted)
	data := map[string]string{
		"notifType": TransactionNotificationType,
		"entryId":   strconv.FormatInt(posted.EntryId, 10),
		"accountId": strconv.Itoa(posted.AccountId),
		"kind":      posted.Kind,
		"route":     "/balance",
	}
	if err := t.notifier.Notify(e.Context(), posted.UserId, title, body, data); err != nil {
		log.Errorf("failed to notify user %d about entry %d: %v", posted.UserId, posted.EntryId, err)
		return err
	}
	return nil
}

func transactionMessage(posted event_bus.EntryPosted) (string, string) {
	amount := posted.Amount.StringFixed(2) + " " + posted.Currency
	balance := posted.BalanceAfter.StringFixed(2) + " " + posted.Currency
	if posted.Kind == string(ledger.Income) {
		return "Income added", fmt.Sprintf("%s was added to your balance (%s). New balance: %s.", amount, posted.Name, balance)
	}
	return "Spending recorded", fmt.Sprintf("You spent %s on %s. Remaining balance: %s.", amount, posted.Category, balance)
}
