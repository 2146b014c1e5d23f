package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sender delivers one mail message. Implementations own retry and
// transport concerns; the worker only logs failures.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes mail to the process log instead of delivering it —
// the development transport.
type LogSender struct{}

// Send logs the message.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("[notify] ====== MAIL SENT ======\nTo: %s\nSubject: %s\n%s=======================",
		msg.To, msg.Subject, msg.Body)
	return nil
}

// Worker drains the mail queue and hands each message to the Sender.
// It runs until its context is cancelled.
type Worker struct {
	rdb    *redis.Client
	sender Sender
}

// NewWorker constructs a Worker.
func NewWorker(rdb *redis.Client, sender Sender) *Worker {
	return &Worker{rdb: rdb, sender: sender}
}

// Run blocks, popping messages until ctx is cancelled. Malformed or
// undeliverable messages are logged and dropped — the queue makes no
// delivery guarantee.
func (w *Worker) Run(ctx context.Context) {
	log.Println("[notify] Mail worker started")
	for {
		res, err := w.rdb.BRPop(ctx, 2*time.Second, mailQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue // timeout, queue empty
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[notify] Mail worker stopped")
				return
			}
			slog.Warn("mail pop failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [key, payload].
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			slog.Warn("mail unmarshal failed, dropping", "err", err)
			continue
		}

		if err := w.sender.Send(ctx, msg); err != nil {
			slog.Warn("mail delivery failed", "messageId", msg.ID, "to", msg.To, "err", err)
		}
	}
}
