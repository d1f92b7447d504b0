package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/klokku/cycleledger/internal/event_bus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// EntryRecord is the wire form of a posted entry on the ledger stream.
type EntryRecord struct {
	EntryId      int64           `json:"entryId"`
	UserId       int             `json:"userId"`
	AccountId    int             `json:"accountId"`
	Kind         string          `json:"kind"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Date         time.Time       `json:"date"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	PostedAt     time.Time       `json:"postedAt"`
}

// EventForwarder copies committed postings to an external stream. Records are keyed by
// user so a consumer sees one user's postings in order.
type EventForwarder struct {
	publisher Publisher
}

func NewEventForwarder(publisher Publisher) *EventForwarder {
	return &EventForwarder{publisher: publisher}
}

func (f *EventForwarder) Register(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.EntryPostedType, f.handle)
}

func (f *EventForwarder) handle(e event_bus.EventT[event_bus.EntryPosted]) error {
	posted := e.Data
	payload, err := json.Marshal(EntryRecord{
		EntryId:      posted.EntryId,
		UserId:       posted.UserId,
		AccountId:    posted.AccountId,
		Kind:         posted.Kind,
		Name:         posted.Name,
		Category:     posted.Category,
		Amount:       posted.Amount,
		Currency:     posted.Currency,
		Date:         posted.Date,
		BalanceAfter: posted.BalanceAfter,
		PostedAt:     e.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode entry %d: %w", posted.EntryId, err)
	}
	if err := f.publisher.Publish(e.Context(), strconv.Itoa(posted.UserId), payload); err != nil {
		log.Errorf("failed to forward entry %d: %v", posted.EntryId, err)
		return err
	}
	log.Tracef("forwarded entry %d", posted.EntryId)
	return nil
}
