package event_bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klokku/cycleledger/internal/utils"
	log "github.com/sirupsen/logrus"
)

// EventType is an identifier for events.
type EventType string

// Event is the envelope carried by the bus. Data holds any payload type.
type Event struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      any
}

// NewEvent builds an unstamped event. The bus sets Timestamp from its clock on publish.
func NewEvent(ctx context.Context, eventType EventType, data any) Event {
	return Event{
		ctx:  ctx,
		Type: eventType,
		Data: data,
	}
}

// Context returns the context associated with this event.
func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// EventT is a typed envelope used by typed handlers.
type EventT[T any] struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      T
}

func (e EventT[T]) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

type handler func(Event) error

type subscription struct {
	id uint64
	h  handler
}

// EventBus dispatches events to subscribers. Publish runs handlers synchronously,
// PublishAsync runs them on a detached goroutine with its own deadline.
type EventBus struct {
	mu           sync.RWMutex
	subscribers  map[EventType]map[uint64]handler
	nextID       uint64
	asyncTimeout time.Duration
	inflight     sync.WaitGroup
	clock        utils.Clock
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers:  make(map[EventType]map[uint64]handler),
		asyncTimeout: 30 * time.Second,
		clock:        utils.SystemClock{},
	}
}

// WithClock sets the clock used to stamp published events.
func (eb *EventBus) WithClock(clock utils.Clock) *EventBus {
	eb.clock = clock
	return eb
}

func (eb *EventBus) stamp(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = eb.clock.Now()
	}
	return e
}

// WithAsyncTimeout sets the deadline applied to handlers run by PublishAsync.
func (eb *EventBus) WithAsyncTimeout(timeout time.Duration) *EventBus {
	eb.asyncTimeout = timeout
	return eb
}

// Subscribe registers a handler for eventType and returns a function removing it.
func (eb *EventBus) Subscribe(eventType EventType, h func(Event) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID

	if eb.subscribers[eventType] == nil {
		eb.subscribers[eventType] = make(map[uint64]handler)
	}
	eb.subscribers[eventType][id] = h
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		if handlers := eb.subscribers[eventType]; handlers != nil {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(eb.subscribers, eventType)
			}
		}
	}
}

// SubscribeTyped registers a handler for payloads of type T. Events carrying a
// different payload type are skipped.
func SubscribeTyped[T any](eb *EventBus, eventType EventType, h func(EventT[T]) error) (unsubscribe func()) {
	wrapper := func(e Event) error {
		payload, ok := e.Data.(T)
		if !ok {
			log.Debugf("EventBus: payload of %s is %T, expected %T", eventType, e.Data, *new(T))
			return nil
		}
		return h(EventT[T]{
			ctx:       e.ctx,
			Type:      e.Type,
			Timestamp: e.Timestamp,
			Data:      payload,
		})
	}
	return eb.Subscribe(eventType, wrapper)
}

func (eb *EventBus) handlersFor(eventType EventType) []subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	subs := make([]subscription, 0, len(eb.subscribers[eventType]))
	for id, h := range eb.subscribers[eventType] {
		subs = append(subs, subscription{id, h})
	}
	return subs
}

// Publish runs every handler of e.Type and returns the collected errors.
// Panics are recovered and reported as errors. A cancelled context stops dispatch.
func (eb *EventBus) Publish(e Event) error {
	e = eb.stamp(e)
	if err := e.Context().Err(); err != nil {
		return fmt.Errorf("event %s: context cancelled before publish: %w", e.Type, err)
	}

	var failures []error
	for _, sub := range eb.handlersFor(e.Type) {
		if err := e.Context().Err(); err != nil {
			failures = append(failures, fmt.Errorf("context cancelled during event processing: %w", err))
			break
		}
		if err := invoke(sub, e); err != nil {
			log.Errorf("EventBus: handler %d failed for event %s: %v", sub.id, e.Type, err)
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("event %s: %d handler(s) failed: %v", e.Type, len(failures), failures)
	}
	return nil
}

// PublishAsync dispatches the event without blocking the caller. Handlers get a
// context detached from the caller's cancellation (values are kept) and bounded by
// the bus async timeout. Failures are logged only.
func (eb *EventBus) PublishAsync(e Event) {
	e = eb.stamp(e)
	eb.inflight.Add(1)
	go func() {
		defer eb.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(e.Context()), eb.asyncTimeout)
		defer cancel()
		e.ctx = ctx
		if err := eb.Publish(e); err != nil {
			log.Warnf("EventBus: async dispatch of %s finished with errors: %v", e.Type, err)
		}
	}()
}

// Wait blocks until all in-flight async dispatches finish.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

func invoke(sub subscription, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic (ID %d) for event %s: %v", sub.id, e.Type, r)
		}
	}()
	return sub.h(e)
}
