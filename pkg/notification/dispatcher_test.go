package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klokku/cycleledger/internal/messaging"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherStub struct {
	bodies [][]byte
}

func (p *publisherStub) Publish(ctx context.Context, body []byte) error {
	p.bodies = append(p.bodies, body)
	return nil
}

// queueStub feeds the published bodies back to a consumer.
type queueStub struct {
	publisherStub
	results []error
}

func (q *queueStub) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	for _, body := range q.bodies {
		q.results = append(q.results, handler(ctx, body))
	}
	return nil
}

type senderStub struct {
	mu    sync.Mutex
	sent  []Job
	err   error
	block chan struct{}
}

func (s *senderStub) Send(ctx context.Context, userId int, title, body string, kind Type, data map[string]string) (Notification, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Notification{}, s.err
	}
	s.sent = append(s.sent, Job{UserId: userId, Title: title, Body: body, Type: kind, Data: data})
	return Notification{UserId: userId, Title: title}, nil
}

func TestQueueDispatcher(t *testing.T) {
	t.Run("should deliver queued notification through consumer", func(t *testing.T) {
		// given
		queue := &queueStub{}
		sender := &senderStub{}
		dispatcher := NewQueueDispatcher(queue)

		// when
		err := dispatcher.Notify(context.Background(), 7, "Budget alert", "80% used", map[string]string{"notifType": "BUDGET_ALERT"})
		require.NoError(t, err)
		require.NoError(t, NewConsumer(queue, sender).Run(context.Background()))

		// then
		require.Len(t, sender.sent, 1)
		assert.Equal(t, Job{UserId: 7, Title: "Budget alert", Body: "80% used", Type: Normal,
			Data: map[string]string{"notifType": "BUDGET_ALERT"}}, sender.sent[0])
		var job map[string]any
		require.NoError(t, json.Unmarshal(queue.bodies[0], &job))
		assert.Equal(t, float64(7), job["userId"])
	})

	t.Run("should drop malformed jobs permanently", func(t *testing.T) {
		consumer := NewConsumer(&queueStub{}, &senderStub{})

		err := consumer.Handle(context.Background(), []byte("{not json"))

		var permanent messaging.PermanentError
		assert.ErrorAs(t, err, &permanent)
		assert.ErrorAs(t, consumer.Handle(context.Background(), []byte(`{"title":"x"}`)), &permanent)
	})

	t.Run("should drop job for a deleted recipient", func(t *testing.T) {
		// given
		fkErr := fmt.Errorf("could not store notification: %w", &pgconn.PgError{Code: "23503"})
		consumers := []*Consumer{
			NewConsumer(&queueStub{}, &senderStub{err: fkErr}),
			NewConsumer(&queueStub{}, &senderStub{err: user.ErrUserNotFound}),
		}

		for _, consumer := range consumers {
			// when
			err := consumer.Handle(context.Background(), []byte(`{"userId":42,"title":"x"}`))

			// then
			var permanent messaging.PermanentError
			require.ErrorAs(t, err, &permanent)
			assert.Contains(t, err.Error(), "recipient 42")
		}
	})

	t.Run("should requeue when sending fails", func(t *testing.T) {
		consumer := NewConsumer(&queueStub{}, &senderStub{err: errors.New("db down")})

		err := consumer.Handle(context.Background(), []byte(`{"userId":1,"title":"x"}`))

		require.Error(t, err)
		var permanent messaging.PermanentError
		assert.False(t, errors.As(err, &permanent))
	})
}

func TestAsyncDispatcher(t *testing.T) {
	t.Run("should return before delivery and survive cancelled caller", func(t *testing.T) {
		// given
		sender := &senderStub{block: make(chan struct{})}
		dispatcher := NewAsyncDispatcher(sender)
		ctx, cancel := context.WithCancel(context.Background())

		// when
		err := dispatcher.Notify(ctx, 3, "title", "body", nil)
		cancel()
		close(sender.block)
		dispatcher.Wait()

		// then
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, 3, sender.sent[0].UserId)
	})

	t.Run("should swallow delivery errors", func(t *testing.T) {
		dispatcher := NewAsyncDispatcher(&senderStub{err: errors.New("failed")})

		err := dispatcher.Notify(context.Background(), 3, "title", "body", nil)
		dispatcher.Wait()

		assert.NoError(t, err)
	})
}
