package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// mailQueueKey is the Redis list the worker drains.
	mailQueueKey = "pipeline:mail"

	// stageChangedChannel carries stage-change events for the
	// gateway's SSE forwarder.
	stageChangedChannel = "EVENT_STAGE_CHANGED"

	// enqueueTimeout bounds the detached push so a wedged Redis can
	// never pile up goroutines forever.
	enqueueTimeout = 5 * time.Second
)

// Message is the mail envelope pushed onto the queue.
type Message struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queuedAt"`
}

// Queue enqueues notifications onto Redis. Every method is
// fire-and-forget: the push runs on its own goroutine with its own
// context, so a slow or failed enqueue never blocks or fails the
// caller's mutation path.
type Queue struct {
	rdb *redis.Client
}

// NewQueue returns a Queue backed by the given Redis client.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue pushes one mail message onto the queue.
func (q *Queue) Enqueue(recipient, subject, body string) {
	msg := Message{
		ID:       uuid.NewString(),
		To:       recipient,
		Subject:  subject,
		Body:     body,
		QueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("mail marshal failed", "to", recipient, "err", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := q.rdb.LPush(ctx, mailQueueKey, payload).Err(); err != nil {
			slog.Warn("mail enqueue failed", "to", recipient, "messageId", msg.ID, "err", err)
		}
	}()
}

// PublishStageChanged emits a stage-change event on the SSE channel.
func (q *Queue) PublishStageChanged(applicationID, candidateID, from, to string) {
	event, _ := json.Marshal(map[string]string{
		"type":          stageChangedChannel,
		"applicationId": applicationID,
		"userId":        candidateID,
		"from":          from,
		"to":            to,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := q.rdb.Publish(ctx, stageChangedChannel, event).Err(); err != nil {
			slog.Warn("publish EVENT_STAGE_CHANGED failed", "applicationId", applicationID, "err", err)
		}
	}()
}
