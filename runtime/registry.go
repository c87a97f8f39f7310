package runtime

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"socket-relay/contract"
	"socket-relay/errors"
	"socket-relay/observability"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"
)

// Verdict tells a registry scan what to do with the peer it just visited.
type Verdict int

const (
	Keep Verdict = iota
	Retire
)

// Registry is the capacity-bounded set of live peers.
//
// Free slots are counted by a weighted semaphore: admission takes one permit,
// removal gives one back. The peer sequence is dense and ordered by admission;
// removal shifts the tail left. Every mutation and every scan holds mu.
//
// A peer forced in while the registry is full is recorded as debt. The next
// removal repays the debt instead of releasing a permit, which keeps the
// permit count at or below the capacity and the size at or below capacity+1.
type Registry struct {
	mu       sync.Mutex
	log      *slog.Logger
	stats    *observability.MonitoringManager
	tokens   *semaphore.Weighted
	capacity int
	free     int
	debt     int
	peers    []contract.PeerHandle
	closed   bool
}

func NewRegistry(log *slog.Logger, capacity int, stats *observability.MonitoringManager) (*Registry, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", errors.ErrInvalidCapacity, capacity)
	}
	return &Registry{
		log:      log,
		stats:    stats,
		tokens:   semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		free:     capacity,
		peers:    make([]contract.PeerHandle, 0, capacity+1),
	}, nil
}

// TryAdmit appends peer if a permit is available and returns the permits left.
// It never blocks. ErrRegistryFull means the peer was not admitted.
func (r *Registry) TryAdmit(peer contract.PeerHandle) (int, error) {
	if peer == nil {
		return 0, errors.ErrNilPeer
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errors.ErrRegistryClosed
	}
	if !r.tokens.TryAcquire(1) {
		return 0, errors.ErrRegistryFull
	}
	r.peers = append(r.peers, peer)
	r.free--
	r.stats.IncrPeersAdmitted()
	return r.free, nil
}

// ForceAdmit appends peer without a permit. It is used once per drain cycle
// for the connection that was accepted before the registry turned out full.
func (r *Registry) ForceAdmit(peer contract.PeerHandle) error {
	if peer == nil {
		return errors.ErrNilPeer
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.ErrRegistryClosed
	}
	r.peers = append(r.peers, peer)
	r.debt++
	r.stats.IncrPeersForced()
	return nil
}

// AwaitSpace blocks until at least one permit exists, then hands it back.
// It does not reserve the slot: another admission may take it first, so the
// caller must retry TryAdmit and cope with ErrRegistryFull.
func (r *Registry) AwaitSpace(ctx context.Context) error {
	if err := r.tokens.Acquire(ctx, 1); err != nil {
		return err
	}
	r.tokens.Release(1)
	return nil
}

// Remove retires peer if it is still registered. Removing a peer that is
// already gone is a no-op and credits nothing. While a forced admission is
// outstanding, a removal repays it and Available does not grow.
func (r *Registry) Remove(peer contract.PeerHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.peers {
		if p == peer {
			r.retireAt(i)
			return true
		}
	}
	return false
}

// Scan visits every peer in order while holding the registry lock.
// A peer for which fn returns Retire is removed and closed, and the scan
// resumes at the same index. It returns the number of retired peers.
// Retirements repay forced admissions before freeing permits, as Remove does.
func (r *Registry) Scan(fn func(peer contract.PeerHandle) Verdict) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanLocked(fn)
}

func (r *Registry) scanLocked(fn func(peer contract.PeerHandle) Verdict) int {
	retired := 0
	for i := 0; i < len(r.peers); {
		if fn(r.peers[i]) == Retire {
			r.retireAt(i)
			retired++
			continue
		}
		i++
	}
	return retired
}

// retireAt must be called with mu held.
func (r *Registry) retireAt(i int) {
	peer := r.peers[i]
	copy(r.peers[i:], r.peers[i+1:])
	r.peers[len(r.peers)-1] = nil
	r.peers = r.peers[:len(r.peers)-1]

	if r.debt > 0 {
		r.debt--
	} else {
		r.free++
		r.tokens.Release(1)
	}
	r.stats.IncrPeersRetired()

	if err := peer.Close(); err != nil {
		r.log.Debug("Closing retired peer failed", "peer", peer.ID(), "error", err)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Available returns the number of free permits.
func (r *Registry) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.free
}

func (r *Registry) Capacity() int { return r.capacity }

// Snapshot returns the registered peer IDs in registry order.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.peers, func(p contract.PeerHandle, _ int) string {
		return p.ID()
	})
}

// Close closes every registered peer and refuses further admissions.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, p := range r.peers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing peer %s: %w", p.ID(), err))
		}
	}
	r.log.Debug("Registry closed", "peers", len(r.peers))
	r.peers = nil
	return goerrors.Join(errs...)
}
