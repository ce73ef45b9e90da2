// Package mailer decouples outbound email from the request path. Mutating
// operations enqueue a job and return immediately; a worker goroutine drains
// the queue and retries transient failures. A slow or dead mail transport
// never stalls or fails the state transition that triggered the send.
package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const queueSize = 64

// Sender is the mail transport. *email.Client satisfies it.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Job is one queued email.
type Job struct {
	ID       string
	To       string
	Subject  string
	HTMLBody string
}

// Queue is an in-process fire-and-forget mail dispatcher.
type Queue struct {
	mu     sync.RWMutex
	sender Sender
	jobs   chan Job
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewQueue(sender Sender, logger *slog.Logger) *Queue {
	return &Queue{
		sender: sender,
		jobs:   make(chan Job, queueSize),
		logger: logger,
	}
}

// Start begins the worker loop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	q.mu.Unlock()

	go func() {
		defer close(q.done)
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.jobs:
				q.deliver(ctx, job)
			}
		}
	}()
}

// Stop cancels the worker and waits for it to exit.
func (q *Queue) Stop() {
	q.mu.RLock()
	cancel := q.cancel
	done := q.done
	q.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Enqueue queues one email. Never blocks: if the buffer is full the job is
// dropped and logged, which is the fire-and-forget contract.
func (q *Queue) Enqueue(to, subject, htmlBody string) {
	job := Job{
		ID:       uuid.NewString(),
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	}
	// Routine lines carry only the job id; recipient addresses stay out of
	// the logs except when a delivery has failed for good.
	select {
	case q.jobs <- job:
		q.logger.Debug("mail queued", "job", job.ID)
	default:
		q.logger.Warn("mail queue full, dropping job", "job", job.ID)
	}
}

// Pending returns the number of jobs waiting in the queue.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) deliver(ctx context.Context, job Job) {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := q.sender.Send(job.To, job.Subject, job.HTMLBody); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		q.logger.Error("mail delivery failed", "job", job.ID, "to", job.To, "error", err)
		return
	}
	q.logger.Info("mail delivered", "job", job.ID)
}
