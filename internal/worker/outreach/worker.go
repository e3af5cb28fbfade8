package outreachworker

import (
	"context"
	"time"

	"github.com/SkCo-Dali/dali-crm/internal/observability/metrics"
	"github.com/SkCo-Dali/dali-crm/internal/outreach"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// Worker drains the outreach queue, sends WhatsApp messages under the shared
// throttle, and schedules retries with exponential backoff.
type Worker struct {
	queue    outreach.Queue
	store    outreach.Store
	sender   outreach.Sender
	throttle *outreach.Throttle
	logger   *logging.Logger
	metrics  *metrics.OutreachMetrics

	maxAttempts   int
	baseDelay     time.Duration
	retryInterval time.Duration
	batchSize     int
	waitSeconds   int
}

// New creates an outreach worker with default retry behavior: five attempts,
// five-minute base delay.
func New(queue outreach.Queue, store outreach.Store, sender outreach.Sender, throttle *outreach.Throttle, logger *logging.Logger, m *metrics.OutreachMetrics) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:         queue,
		store:         store,
		sender:        sender,
		throttle:      throttle,
		logger:        logger,
		metrics:       m,
		maxAttempts:   5,
		baseDelay:     5 * time.Minute,
		retryInterval: time.Minute,
		batchSize:     10,
		waitSeconds:   10,
	}
}

func (w *Worker) WithMaxAttempts(n int) *Worker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

func (w *Worker) WithBaseDelay(d time.Duration) *Worker {
	if d > 0 {
		w.baseDelay = d
	}
	return w
}

func (w *Worker) WithRetryInterval(d time.Duration) *Worker {
	if d > 0 {
		w.retryInterval = d
	}
	return w
}

// Run consumes queue messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.batchSize, w.waitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue receive failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range messages {
			w.process(ctx, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg outreach.QueueMessage) {
	job, err := outreach.DecodeJob(msg.Body)
	if err != nil {
		// Undecodable payloads would loop forever; drop them.
		w.logger.Error("bad send job dropped", "error", err, "queue_message_id", msg.ID)
		_ = w.queue.Delete(ctx, msg.ReceiptHandle)
		return
	}

	ok, err := w.throttle.Allow(ctx)
	if err != nil {
		w.logger.Error("throttle check failed", "error", err, "message_id", job.MessageID)
		return
	}
	if !ok {
		// Leave the message in flight; it becomes visible again after the
		// queue's visibility timeout, by which point the window has moved.
		w.metrics.ObserveThrottled()
		return
	}

	providerID, err := w.sender.Send(ctx, job.Phone, job.Body)
	if err != nil {
		w.logger.Error("send failed", "error", err, "message_id", job.MessageID, "campaign_id", job.CampaignID)
		w.metrics.ObserveSent(outreach.MessageRetryPending)
		if err := w.store.ScheduleRetry(ctx, job.MessageID, time.Now().Add(w.nextDelay(0)), err.Error()); err != nil {
			w.logger.Error("schedule retry failed", "error", err, "message_id", job.MessageID)
		}
		_ = w.queue.Delete(ctx, msg.ReceiptHandle)
		return
	}

	if err := w.store.MarkSent(ctx, job.MessageID, providerID); err != nil {
		w.logger.Error("mark sent failed", "error", err, "message_id", job.MessageID)
	}
	w.metrics.ObserveSent(outreach.MessageSent)
	_ = w.queue.Delete(ctx, msg.ReceiptHandle)
}

// RunRetryLoop periodically re-sends messages whose retry is due, until ctx
// is cancelled.
func (w *Worker) RunRetryLoop(ctx context.Context) {
	ticker := time.NewTicker(w.retryInterval)
	defer ticker.Stop()
	w.drainRetries(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainRetries(ctx)
		}
	}
}

func (w *Worker) drainRetries(ctx context.Context) {
	candidates, err := w.store.ListRetryCandidates(ctx, w.batchSize, w.maxAttempts)
	if err != nil {
		w.logger.Error("retry fetch failed", "error", err)
		return
	}
	for _, m := range candidates {
		ok, err := w.throttle.Allow(ctx)
		if err != nil {
			w.logger.Error("throttle check failed", "error", err, "message_id", m.ID)
			return
		}
		if !ok {
			w.metrics.ObserveThrottled()
			return
		}

		providerID, err := w.sender.Send(ctx, m.Phone, m.Body)
		if err != nil {
			if m.Attempts+1 >= w.maxAttempts {
				w.metrics.ObserveSent(outreach.MessageFailed)
				if err := w.store.MarkFailed(ctx, m.ID, err.Error()); err != nil {
					w.logger.Error("mark failed failed", "error", err, "message_id", m.ID)
				}
				continue
			}
			next := w.nextDelay(m.Attempts)
			w.metrics.ObserveSent(outreach.MessageRetryPending)
			if err := w.store.ScheduleRetry(ctx, m.ID, time.Now().Add(next), err.Error()); err != nil {
				w.logger.Error("schedule retry failed", "error", err, "message_id", m.ID)
			}
			continue
		}

		if err := w.store.MarkSent(ctx, m.ID, providerID); err != nil {
			w.logger.Error("mark sent failed", "error", err, "message_id", m.ID)
		}
		w.metrics.ObserveSent(outreach.MessageSent)
	}
}

func (w *Worker) nextDelay(attempts int) time.Duration {
	delay := w.baseDelay * time.Duration(1<<attempts)
	if delay > 24*time.Hour {
		delay = 24 * time.Hour
	}
	return delay
}
