package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/klokku/cycleledger/internal/database"
	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/messaging"
	log "github.com/sirupsen/logrus"
)

const defaultDispatchTimeout = 30 * time.Second

// Job is the queued form of a notification.
type Job struct {
	UserId int               `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Type   Type              `json:"type"`
	Data   map[string]string `json:"data,omitempty"`
}

type QueuePublisher interface {
	Publish(ctx context.Context, body []byte) error
}

type QueueSource interface {
	Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error
}

type Sender interface {
	Send(ctx context.Context, userId int, title, body string, kind Type, data map[string]string) (Notification, error)
}

// QueueDispatcher hands notifications to a durable queue. A Consumer delivers them.
type QueueDispatcher struct {
	publisher QueuePublisher
}

func NewQueueDispatcher(publisher QueuePublisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

func (d *QueueDispatcher) Notify(ctx context.Context, userId int, title, body string, data map[string]string) error {
	payload, err := json.Marshal(Job{UserId: userId, Title: title, Body: body, Type: Normal, Data: data})
	if err != nil {
		return fmt.Errorf("encode notification job: %w", err)
	}
	return d.publisher.Publish(ctx, payload)
}

type Consumer struct {
	source QueueSource
	sender Sender
}

func NewConsumer(source QueueSource, sender Sender) *Consumer {
	return &Consumer{source: source, sender: sender}
}

// Run blocks until ctx is done or the queue closes.
func (c *Consumer) Run(ctx context.Context) error {
	return c.source.Consume(ctx, c.Handle)
}

func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return messaging.PermanentError{Err: fmt.Errorf("decode notification job: %w", err)}
	}
	if job.UserId == 0 {
		return messaging.PermanentError{Err: fmt.Errorf("notification job without user")}
	}
	_, err := c.sender.Send(ctx, job.UserId, job.Title, job.Body, job.Type, job.Data)
	if database.IsForeignKeyViolation(err) || errs.IsKind(err, errs.NotFound) {
		return messaging.PermanentError{Err: fmt.Errorf("recipient %d is gone: %w", job.UserId, err)}
	}
	return err
}

// AsyncDispatcher sends every notification on its own goroutine, detached from the
// caller's context. Failures are logged and never reach the caller.
type AsyncDispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(sender Sender) *AsyncDispatcher {
	return &AsyncDispatcher{sender: sender, timeout: defaultDispatchTimeout}
}

func (d *AsyncDispatcher) Notify(ctx context.Context, userId int, title, body string, data map[string]string) error {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("notification dispatch panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if _, err := d.sender.Send(ctx, userId, title, body, Normal, data); err != nil {
			log.Errorf("failed to dispatch notification %q to user %d: %v", title, userId, err)
		}
	}()
	return nil
}

// Wait blocks until all dispatches started so far have finished.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
