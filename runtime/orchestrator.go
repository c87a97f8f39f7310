// Package runtime owns the relay core: the connection registry, the broadcaster
// and the accepting listener, and the orchestrator that starts and stops them.
package runtime

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"socket-relay/contract"
	"socket-relay/domain"
	"socket-relay/errors"
	"socket-relay/observability"
	"sync"
)

var _ contract.IOrchestrator = (*Orchestrator)(nil)

// Orchestrator wires the shared relay state once and drives the startup and
// shutdown handshakes of the core workers.
//
// The broadcaster and the listener run in their own goroutines, outside the
// supervisor: they are never restarted, a fatal exit closes Failed. Optional
// auxiliary workers are handed to the supervisor once the core is up.
type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	stats       *observability.MonitoringManager
	registry    *Registry
	broadcaster *Broadcaster
	listener    *Listener
	auxiliary   []contract.Worker

	started         bool
	stopOnce        sync.Once
	failOnce        sync.Once
	failed          chan struct{}
	broadcasterDone <-chan error
	listenerDone    <-chan error
	auxCancel       context.CancelFunc
	auxDone         chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	stats *observability.MonitoringManager, socketPath string, maxPeers, bufferLength int) (*Orchestrator, error) {
	if supervisor == nil {
		return nil, fmt.Errorf("%w: supervisor", errors.ErrMissingDependency)
	}
	registry, err := NewRegistry(log, maxPeers, stats)
	if err != nil {
		return nil, err
	}
	message, err := NewPendingMessage(bufferLength)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		stats:       stats,
		registry:    registry,
		broadcaster: NewBroadcaster(log, registry, message, stats),
		listener:    NewListener(log, socketPath, maxPeers, registry, stats),
		failed:      make(chan struct{}),
	}, nil
}

// Add registers auxiliary workers. It must be called before Start.
func (o *Orchestrator) Add(workers ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.auxiliary = append(o.auxiliary, workers...)
}

// Start launches the broadcaster and then the listener, waiting for each
// one's initialization before moving on. A listener that cannot bind stops
// the broadcaster again before Start returns. Canceling ctx stops the
// auxiliary workers only; the core keeps serving until Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return nil
	}

	// Core workers only stop through Stop, so the listener is always joined
	// before the broadcaster is told to quit.
	coreCtx := context.WithoutCancel(ctx)
	bhs := domain.NewHandshake()
	o.broadcasterDone = o.launch(coreCtx, "broadcaster", bhs, o.broadcaster.Run)
	<-bhs.Done()
	if err := bhs.Err(); err != nil {
		<-o.broadcasterDone
		return fmt.Errorf("starting the broadcaster failed: %w", err)
	}

	lhs := domain.NewHandshake()
	o.listenerDone = o.launch(coreCtx, "listener", lhs, o.listener.Run)
	<-lhs.Done()
	if err := lhs.Err(); err != nil {
		<-o.listenerDone
		o.broadcaster.Stop()
		<-o.broadcasterDone
		return fmt.Errorf("starting the listener failed: %w", err)
	}

	auxCtx, cancel := context.WithCancel(ctx)
	o.auxCancel = cancel
	o.auxDone = make(chan struct{})
	if len(o.auxiliary) > 0 {
		o.supervisor.Add(o.auxiliary...)
	}
	go func() {
		defer close(o.auxDone)
		o.supervisor.Run(auxCtx)
	}()

	o.started = true
	o.log.Info("Relay started", "path", o.listener.Addr(),
		"capacity", o.registry.Capacity(), "auxiliary_workers", len(o.auxiliary))
	return nil
}

// launch runs a core worker. A panic is reported through hs when it happens
// during initialization and through Failed afterwards.
func (o *Orchestrator) launch(ctx context.Context, name string, hs *domain.Handshake,
	run func(context.Context, *domain.Handshake) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("Core worker panicked", "name", name, "panic", r)
				err = fmt.Errorf("%s: %w", name, errors.ErrWorkerPanic)
				hs.Fail(err)
			}
			if err != nil {
				o.fail()
			}
			done <- err
		}()
		err = run(ctx, hs)
	}()
	return done
}

func (o *Orchestrator) fail() {
	o.failOnce.Do(func() { close(o.failed) })
}

// Publish hands text to the broadcaster.
func (o *Orchestrator) Publish(text string) error {
	return o.broadcaster.Publish(text)
}

// Failed is closed when the broadcaster or the listener exits on a fatal error.
func (o *Orchestrator) Failed() <-chan struct{} {
	return o.failed
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Stop shuts the relay down in reverse dependency order: auxiliary workers,
// listener, broadcaster, then the registry with every peer in it. It returns
// the fatal errors the core workers exited with. Later calls return nil.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return errors.ErrNotStarted
	}

	var err error
	o.stopOnce.Do(func() {
		o.log.Info("Requesting relay shutdown")
		o.auxCancel()
		<-o.auxDone
		o.log.Debug("Auxiliary workers stopped")

		o.listener.Stop()
		listenerErr := <-o.listenerDone

		o.broadcaster.Stop()
		broadcasterErr := <-o.broadcasterDone

		closeErr := o.registry.Close()
		err = goerrors.Join(listenerErr, broadcasterErr, closeErr)
		o.log.Info("Relay stopped", "error", err)
	})
	return err
}
