package event_bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klokku/cycleledger/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should deliver typed payload to subscriber", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var received EntryPosted
		SubscribeTyped(bus, EntryPostedType, func(e EventT[EntryPosted]) error {
			received = e.Data
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), EntryPostedType, EntryPosted{EntryId: 7, Category: "Food"}))

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(7), received.EntryId)
		assert.Equal(t, "Food", received.Category)
	})

	t.Run("should collect handler errors and recover panics", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var called atomic.Int32
		bus.Subscribe("test", func(e Event) error {
			called.Add(1)
			return errors.New("failed")
		})
		bus.Subscribe("test", func(e Event) error {
			called.Add(1)
			panic("boom")
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), "test", nil))

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 handler(s) failed")
		assert.Equal(t, int32(2), called.Load())
	})

	t.Run("should stamp events with the bus clock", func(t *testing.T) {
		// given
		now := time.Date(2026, time.January, 20, 9, 30, 0, 0, time.UTC)
		bus := NewEventBus().WithClock(&utils.MockClock{FixedNow: now})
		var stamped time.Time
		SubscribeTyped(bus, EntryPostedType, func(e EventT[EntryPosted]) error {
			stamped = e.Timestamp
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), EntryPostedType, EntryPosted{EntryId: 1}))

		// then
		require.NoError(t, err)
		assert.Equal(t, now, stamped)
	})

	t.Run("should stamp async events before dispatch", func(t *testing.T) {
		// given
		clock := &utils.MockClock{FixedNow: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)}
		bus := NewEventBus().WithClock(clock)
		stamped := make(chan time.Time, 1)
		bus.Subscribe("test", func(e Event) error {
			stamped <- e.Timestamp
			return nil
		})

		// when
		bus.PublishAsync(NewEvent(context.Background(), "test", nil))
		bus.Wait()

		// then
		assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), <-stamped)
	})

	t.Run("should stop when unsubscribed", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var called atomic.Int32
		unsubscribe := bus.Subscribe("test", func(e Event) error {
			called.Add(1)
			return nil
		})
		unsubscribe()

		// when
		err := bus.Publish(NewEvent(context.Background(), "test", nil))

		// then
		require.NoError(t, err)
		assert.Equal(t, int32(0), called.Load())
	})
}

func TestEventBus_PublishAsync(t *testing.T) {
	t.Run("should run handler after caller context is cancelled", func(t *testing.T) {
		// given
		bus := NewEventBus().WithAsyncTimeout(time.Second)
		var called atomic.Int32
		bus.Subscribe("test", func(e Event) error {
			if e.Context().Err() != nil {
				return e.Context().Err()
			}
			called.Add(1)
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())

		// when
		bus.PublishAsync(NewEvent(ctx, "test", nil))
		cancel()
		bus.Wait()

		// then
		assert.Equal(t, int32(1), called.Load())
	})

	t.Run("should swallow handler failures", func(t *testing.T) {
		bus := NewEventBus()
		bus.Subscribe("test", func(e Event) error { return errors.New("failed") })

		assert.NotPanics(t, func() {
			bus.PublishAsync(NewEvent(context.Background(), "test", nil))
			bus.Wait()
		})
	})
}
