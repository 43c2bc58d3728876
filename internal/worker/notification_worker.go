package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/cache"
	"github.com/spec-kit/academia-portal/internal/observability"
)

// Delivery is one notification pushed by the broker.
type Delivery struct {
	Destination  string
	MessageID    string
	Subscription string
	Body         []byte
}

// NextFunc blocks until the next delivery arrives.
type NextFunc func(ctx context.Context) (Delivery, error)

// StartNotificationWorker drains deliveries on its own goroutine and
// invalidates the notification cache for each one. The returned channel
// receives the terminal error (nil when ctx ended) and is then closed.
func StartNotificationWorker(ctx context.Context, next NextFunc, notifications *cache.Notifications, metrics *observability.Metrics, logger *zap.Logger) <-chan error {
	done := make(chan error, 1)
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		for {
			delivery, err := next(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					done <- nil
					return
				}
				logger.Error("notification channel failed", zap.Error(err))
				metrics.RecordChannel("receive_failed")
				done <- err
				return
			}

			metrics.RecordChannel("message")
			gen := uint64(0)
			if notifications != nil {
				gen = notifications.Invalidate(cache.ReasonMessage)
			}
			logger.Debug("notification received",
				zap.String("destination", delivery.Destination),
				zap.String("message_id", delivery.MessageID),
				zap.Uint64("generation", gen))
		}
	}()

	return done
}
