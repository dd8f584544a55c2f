// Package worker forwards auth events from the event stream to Loki.
package worker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// Reader is satisfied by *kafka.Reader.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher is satisfied by *loki.Client.
type Pusher interface {
	PushEventJSON(ctx context.Context, raw []byte) error
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run reads until ctx is done. A failed push is logged and the message is skipped; the
// stream is best-effort.
func Run(ctx context.Context, r Reader, p Pusher, logger *zap.Logger) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka read", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := p.PushEventJSON(pushCtx, msg.Value); err != nil {
			logger.Warn("loki push", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		cancel()
	}
}
