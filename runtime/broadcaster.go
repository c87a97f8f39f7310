package runtime

import (
	"context"
	"log/slog"
	"socket-relay/contract"
	"socket-relay/domain"
	"socket-relay/errors"
	"socket-relay/observability"
)

// PassReport summarises one broadcast pass.
type PassReport struct {
	Delivered int
	Retired   int
	Failed    int
	FrameSize int
}

// Broadcaster writes the pending message to every registered peer each time
// it is woken.
//
// Lock order is fixed: the message lock is taken before the registry lock.
// Writes happen while the registry lock is held, so one slow peer delays
// every peer after it in the same pass, and admissions wait for the pass.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
	message  *PendingMessage
	stats    *observability.MonitoringManager
	wake     chan struct{}
	stopped  domain.LifecycleFlag
}

func NewBroadcaster(log *slog.Logger, registry *Registry, message *PendingMessage,
	stats *observability.MonitoringManager) *Broadcaster {
	return &Broadcaster{
		log:      log,
		registry: registry,
		message:  message,
		stats:    stats,
		wake:     make(chan struct{}, 1),
	}
}

// Publish stores text in the pending slot and posts one wake-up.
// It never waits for peer I/O. Wake-ups coalesce: publishing twice before
// the broadcaster runs delivers only the second text.
func (b *Broadcaster) Publish(text string) error {
	if b.stopped.IsSet() {
		return errors.ErrBroadcasterStopped
	}
	truncated := b.message.Store(text)
	b.stats.IncrPublished(truncated)
	if truncated {
		b.log.Debug("Message truncated", "length", len(text), "limit", b.message.Cap()-1)
	}
	b.signal()
	return nil
}

// Run reports its initialization through hs, then serves wake-ups until
// Stop is called or ctx is done. Either way Publish is refused afterwards.
func (b *Broadcaster) Run(ctx context.Context, hs *domain.Handshake) error {
	if b.registry == nil || b.message == nil {
		hs.Fail(errors.ErrMissingDependency)
		return errors.ErrMissingDependency
	}
	hs.Ready()
	b.log.Info("Broadcaster started", "buffer_length", b.message.Cap())

	for {
		select {
		case <-ctx.Done():
			b.stopped.Set()
			b.log.Debug("Context done, stopping broadcaster")
			return nil
		case <-b.wake:
		}
		if b.stopped.IsSet() {
			b.log.Info("Broadcaster stopped")
			return nil
		}
		b.Broadcast()
	}
}

// Stop raises the shutdown flag and wakes the loop once so it can observe it.
func (b *Broadcaster) Stop() {
	b.stopped.Set()
	b.signal()
}

func (b *Broadcaster) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Broadcast runs one pass over the registry with the current message.
// A peer whose write fails with a broken pipe is retired; any other write
// error is logged and the peer stays registered.
func (b *Broadcaster) Broadcast() PassReport {
	b.message.mu.Lock()
	b.registry.mu.Lock()
	frame := b.message.frameLocked()
	b.message.mu.Unlock()
	defer b.registry.mu.Unlock()

	report := PassReport{FrameSize: len(frame)}
	report.Retired = b.registry.scanLocked(func(peer contract.PeerHandle) Verdict {
		if _, err := peer.Write(frame); err != nil {
			if domain.IsBrokenPipe(err) {
				b.log.Debug("Peer gone, retiring", "peer", peer.ID(), "error", err)
				return Retire
			}
			report.Failed++
			b.stats.IncrWriteErrors()
			b.log.Warn("Write to peer failed", "peer", peer.ID(), "error", err)
			return Keep
		}
		report.Delivered++
		return Keep
	})
	b.stats.IncrBroadcast(uint64(report.Delivered * len(frame)))
	return report
}
