package runtime

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"socket-relay/domain"
	"socket-relay/errors"
	"socket-relay/observability"
	"sync"
	"sync/atomic"
	"time"
)

// Listener accepts peers on a Unix socket path and hands them to the registry.
//
// When an accepted peer finds the registry full, the listener closes its
// passive socket so the kernel queues nobody else, forces that one peer in,
// waits for a free slot, then binds again. The registry may therefore hold
// one peer above its capacity for the length of a drain cycle.
type Listener struct {
	log      *slog.Logger
	path     string
	backlog  int
	registry *Registry
	stats    *observability.MonitoringManager
	stopped  domain.LifecycleFlag
	state    atomic.Int32

	mu      sync.Mutex
	passive *net.UnixListener
	cancel  context.CancelFunc
}

func NewListener(log *slog.Logger, path string, backlog int, registry *Registry,
	stats *observability.MonitoringManager) *Listener {
	l := &Listener{
		log:      log,
		path:     path,
		backlog:  backlog,
		registry: registry,
		stats:    stats,
	}
	l.state.Store(int32(domain.Stopped))
	return l
}

// Run binds the socket, reports the outcome through hs and accepts peers
// until Stop is called, ctx is done or a fatal error occurs. The bound path
// is removed on return.
func (l *Listener) Run(ctx context.Context, hs *domain.Handshake) error {
	if l.registry == nil {
		hs.Fail(errors.ErrMissingDependency)
		return errors.ErrMissingDependency
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	if err := l.open(); err != nil {
		l.log.Error("Listener initialization failed", "path", l.path, "error", err)
		hs.Fail(err)
		return err
	}
	stopWatch := context.AfterFunc(runCtx, l.interrupt)
	defer stopWatch()

	hs.Ready()
	l.log.Info("Listening", "path", l.path, "capacity", l.registry.Capacity())

	err := l.serve(runCtx)
	l.shutdown()
	if err != nil {
		l.log.Error("Listener stopped on failure", "path", l.path, "error", err)
	}
	return err
}

// Stop raises the shutdown flag and interrupts a blocked accept or a
// blocked wait for registry space.
func (l *Listener) Stop() {
	l.stopped.Set()
	l.interrupt()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// State reports Stopped until Run has bound the socket.
func (l *Listener) State() domain.ListenerState {
	return domain.ListenerState(l.state.Load())
}

func (l *Listener) Addr() string { return l.path }

func (l *Listener) serve(ctx context.Context) error {
	for {
		if l.stopped.IsSet() || ctx.Err() != nil {
			return nil
		}
		ln := l.currentPassive()
		if ln == nil {
			return nil
		}
		conn, err := ln.AcceptUnix()
		if err != nil {
			if domain.IsInterrupted(err) {
				// Clear the poke before the flag is checked again.
				_ = ln.SetDeadline(time.Time{})
				if !l.stopped.IsSet() && ctx.Err() == nil {
					l.stats.IncrAcceptRetries()
					l.log.Debug("Accept interrupted, retrying", "path", l.path)
				}
				continue
			}
			if l.stopped.IsSet() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting a connection failed: %w", err)
		}

		peer := domain.NewPeer(conn)
		remaining, err := l.registry.TryAdmit(peer)
		switch {
		case err == nil:
			l.log.Debug("Peer admitted", "peer", peer.ID(), "remaining", remaining)
		case goerrors.Is(err, errors.ErrRegistryFull):
			if err := l.drain(ctx, peer); err != nil {
				return err
			}
		default:
			_ = peer.Close()
			return fmt.Errorf("adding peer %s to the registry failed: %w", peer.ID(), err)
		}
	}
}

// drain runs one Draining cycle for a peer that was accepted into a full registry.
func (l *Listener) drain(ctx context.Context, peer *domain.Peer) error {
	l.state.Store(int32(domain.Draining))
	l.stats.IncrDrainCycles()
	l.log.Info("Registry full, suspending accept", "path", l.path, "peers", l.registry.Len())

	l.closePassive()
	if err := l.registry.ForceAdmit(peer); err != nil {
		_ = peer.Close()
		return fmt.Errorf("admitting peer %s while draining failed: %w", peer.ID(), err)
	}

	if err := l.registry.AwaitSpace(ctx); err != nil {
		if l.stopped.IsSet() || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("waiting for registry space failed: %w", err)
	}

	if err := l.open(); err != nil {
		return fmt.Errorf("reopening the listener failed: %w", err)
	}
	l.log.Info("Registry has space, accepting again", "path", l.path)
	return nil
}

func (l *Listener) open() error {
	if err := removeStale(l.path); err != nil {
		return err
	}
	ln, err := bindPassive(l.path, l.backlog)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.passive = ln
	l.mu.Unlock()
	l.state.Store(int32(domain.Listening))
	return nil
}

func (l *Listener) currentPassive() *net.UnixListener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.passive
}

// interrupt makes a blocked AcceptUnix return with a timeout.
func (l *Listener) interrupt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.passive != nil {
		_ = l.passive.SetDeadline(time.Now())
	}
}

func (l *Listener) closePassive() {
	l.mu.Lock()
	ln := l.passive
	l.passive = nil
	l.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			l.log.Warn("Shutting down the socket failed", "path", l.path, "error", err)
		}
	}
	if err := removeStale(l.path); err != nil {
		l.log.Warn("Unlinking the socket failed", "path", l.path, "error", err)
	}
}

func (l *Listener) shutdown() {
	l.closePassive()
	l.state.Store(int32(domain.Stopped))
	l.log.Info("Listener stopped", "path", l.path)
}
