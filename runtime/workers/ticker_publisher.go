package workers

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"socket-relay/contract"
	"socket-relay/errors"
	"time"
)

const messageFormat = "This is message number %d."

// TickerPublisher feeds the relay with a numbered message on every tick.
// The counter survives restarts by the supervisor.
type TickerPublisher struct {
	log       *slog.Logger
	publisher contract.IPublisher
	interval  time.Duration
	counter   uint64
}

func NewTickerPublisher(log *slog.Logger, publisher contract.IPublisher, interval time.Duration) *TickerPublisher {
	return &TickerPublisher{log: log, publisher: publisher, interval: interval}
}

func (w *TickerPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping ticker publisher")
			return nil
		case <-ticker.C:
			w.counter++
			err := w.publisher.Publish(fmt.Sprintf(messageFormat, w.counter))
			if goerrors.Is(err, errors.ErrBroadcasterStopped) {
				w.log.Debug("Broadcaster stopped, no more messages")
				return nil
			}
			if err != nil {
				return fmt.Errorf("publishing message %d failed: %w", w.counter, err)
			}
		}
	}
}
