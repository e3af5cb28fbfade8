package outreach

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a Queue backed by an in-memory buffered channel, for local
// runs and tests. Like SQS, a received message stays in flight and is
// re-enqueued after the visibility timeout unless Delete is called first.
type MemoryQueue struct {
	ch         chan QueueMessage
	visibility time.Duration

	mu       sync.Mutex
	inFlight map[string]*time.Timer // keyed by receipt handle
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch:         make(chan QueueMessage, buffer),
		visibility: 30 * time.Second,
		inFlight:   make(map[string]*time.Timer),
	}
}

// WithVisibilityTimeout overrides how long a received message stays invisible
// before redelivery.
func (q *MemoryQueue) WithVisibilityTimeout(d time.Duration) *MemoryQueue {
	if d > 0 {
		q.visibility = d
	}
	return q
}

// Send enqueues a payload or blocks until ctx is done.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	msg := QueueMessage{
		ID:            uuid.NewString(),
		Body:          body,
		ReceiptHandle: uuid.NewString(),
	}

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message is available, ctx is done, or waitSeconds elapses.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var timer *time.Timer
	if waitSeconds > 0 {
		timer = time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
	}

	for {
		if timer == nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case msg := <-q.ch:
				return q.collect(ctx, msg, maxMessages), nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case msg := <-q.ch:
			return q.collect(ctx, msg, maxMessages), nil
		}
	}
}

// Delete acknowledges a message, cancelling its pending redelivery.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.inFlight[receiptHandle]; ok {
		t.Stop()
		delete(q.inFlight, receiptHandle)
	}
	return nil
}

func (q *MemoryQueue) collect(ctx context.Context, first QueueMessage, max int) []QueueMessage {
	if ctx == nil {
		ctx = context.Background()
	}
	messages := make([]QueueMessage, 0, max)
	messages = append(messages, first)

loop:
	for len(messages) < max {
		select {
		case <-ctx.Done():
			break loop
		case msg := <-q.ch:
			messages = append(messages, msg)
		default:
			break loop
		}
	}

	for _, msg := range messages {
		q.track(msg)
	}
	return messages
}

// track arms the visibility timer for a delivered message; firing re-enqueues
// it with a fresh receipt handle unless Delete ran first.
func (q *MemoryQueue) track(msg QueueMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	handle := msg.ReceiptHandle
	q.inFlight[handle] = time.AfterFunc(q.visibility, func() {
		q.mu.Lock()
		_, pending := q.inFlight[handle]
		delete(q.inFlight, handle)
		q.mu.Unlock()
		if !pending {
			return
		}

		redelivered := msg
		redelivered.ReceiptHandle = uuid.NewString()
		select {
		case q.ch <- redelivered:
		default:
			// Buffer full; drop rather than block the timer goroutine.
		}
	})
}
