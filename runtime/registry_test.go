package runtime

import (
	"context"
	"log/slog"
	"math/rand"
	"socket-relay/contract"
	"socket-relay/errors"
	"socket-relay/mocks"
	"socket-relay/observability"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRegistry(t *testing.T, capacity int) *Registry {
	t.Helper()
	registry, err := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), capacity, observability.NewMonitoringManager())
	require.NoError(t, err)
	return registry
}

func TestNewRegistry_InvalidCapacity(t *testing.T) {
	req := require.New(t)
	_, err := NewRegistry(slog.Default(), 0, nil)
	req.ErrorIs(err, errors.ErrInvalidCapacity)
}

func TestRegistry_TryAdmit_ReturnsRemainingPermits(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 3)

	remaining, err := registry.TryAdmit(newRecordingPeer())
	req.NoError(err)
	req.Equal(2, remaining)

	remaining, err = registry.TryAdmit(newRecordingPeer())
	req.NoError(err)
	req.Equal(1, remaining)

	req.Equal(2, registry.Len())
	req.Equal(1, registry.Available())
	req.Equal(3, registry.Capacity())
}

func TestRegistry_TryAdmit_NilPeer(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 1)

	_, err := registry.TryAdmit(nil)
	req.ErrorIs(err, errors.ErrNilPeer)
	req.ErrorIs(registry.ForceAdmit(nil), errors.ErrNilPeer)
	req.Equal(1, registry.Available())
}

func TestRegistry_FullAndForcedOvershoot(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 2)
	p1, p2, p3 := newRecordingPeer(), newRecordingPeer(), newRecordingPeer()

	// Given P1 and P2 admitted
	_, err := registry.TryAdmit(p1)
	req.NoError(err)
	remaining, err := registry.TryAdmit(p2)
	req.NoError(err)
	req.Equal(0, remaining)

	// When P3 arrives while full
	_, err = registry.TryAdmit(p3)

	// Then it is refused without blocking and not admitted
	req.ErrorIs(err, errors.ErrRegistryFull)
	req.Equal(2, registry.Len())

	// When P3 is forced in
	req.NoError(registry.ForceAdmit(p3))

	// Then the size overshoots by one and no permit appears
	req.Equal(3, registry.Len())
	req.Equal(0, registry.Available())
	req.Equal([]string{p1.ID(), p2.ID(), p3.ID()}, registry.Snapshot())

	// When the first peer leaves, the overshoot is repaid
	req.True(registry.Remove(p1))
	req.Equal(2, registry.Len())
	req.Equal(0, registry.Available())

	// When a second peer leaves, a permit is released
	req.True(registry.Remove(p2))
	req.Equal(1, registry.Len())
	req.Equal(1, registry.Available())
}

func TestRegistry_Scan_RepaysForcedAdmissionFirst(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 1)
	admitted, forced := newRecordingPeer(), newRecordingPeer()
	_, err := registry.TryAdmit(admitted)
	req.NoError(err)
	req.NoError(registry.ForceAdmit(forced))

	// When a scan retires both peers
	retired := registry.Scan(func(contract.PeerHandle) Verdict { return Retire })

	// Then only one permit comes back, the capacity is never exceeded
	req.Equal(2, retired)
	req.Equal(0, registry.Len())
	req.Equal(1, registry.Available())
	_, err = registry.TryAdmit(newRecordingPeer())
	req.NoError(err)
	_, err = registry.TryAdmit(newRecordingPeer())
	req.ErrorIs(err, errors.ErrRegistryFull)
}

func TestRegistry_Remove_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 3)
	p1, p2 := newRecordingPeer(), newRecordingPeer()
	_, _ = registry.TryAdmit(p1)
	_, _ = registry.TryAdmit(p2)

	req.True(registry.Remove(p1))
	req.False(registry.Remove(p1))

	req.Equal(1, registry.Len())
	req.Equal(2, registry.Available())
	req.Equal(1, p1.Closed())
	req.Equal([]string{p2.ID()}, registry.Snapshot())
}

func TestRegistry_Scan_RetireCompactsAndContinues(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 4)
	p1, p2, p3 := newRecordingPeer(), newRecordingPeer(), newRecordingPeer()
	for _, p := range []contract.PeerHandle{p1, p2, p3} {
		_, err := registry.TryAdmit(p)
		req.NoError(err)
	}

	var visited []string
	retired := registry.Scan(func(peer contract.PeerHandle) Verdict {
		visited = append(visited, peer.ID())
		if peer == p1 {
			return Retire
		}
		return Keep
	})

	req.Equal(1, retired)
	req.Equal([]string{p1.ID(), p2.ID(), p3.ID()}, visited)
	req.Equal([]string{p2.ID(), p3.ID()}, registry.Snapshot())
	req.Equal(2, registry.Available())
}

func TestRegistry_Scan_RetireEveryPeer(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 3)
	for i := 0; i < 3; i++ {
		_, _ = registry.TryAdmit(newRecordingPeer())
	}

	retired := registry.Scan(func(contract.PeerHandle) Verdict { return Retire })

	req.Equal(3, retired)
	req.Equal(0, registry.Len())
	req.Equal(3, registry.Available())
}

func TestRegistry_Scan_ClosesRetiredMockPeer(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := newTestRegistry(t, 1)

	peer := mocks.NewMockPeerHandle(ctrl)
	peer.EXPECT().ID().Return("mock-peer").AnyTimes()
	peer.EXPECT().Close().Return(nil).Times(1)

	_, err := registry.TryAdmit(peer)
	req.NoError(err)

	req.Equal(1, registry.Scan(func(contract.PeerHandle) Verdict { return Retire }))
	req.Equal(0, registry.Scan(func(contract.PeerHandle) Verdict { return Retire }))
}

func TestRegistry_AwaitSpace_WakesOnRemovalWithoutReserving(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 1)
	peer := newRecordingPeer()
	_, err := registry.TryAdmit(peer)
	req.NoError(err)

	woke := make(chan error, 1)
	go func() {
		woke <- registry.AwaitSpace(context.Background())
	}()

	// Given the waiter is blocked while the registry is full
	select {
	case <-woke:
		req.Fail("AwaitSpace returned while the registry was full")
	case <-time.After(50 * time.Millisecond):
	}

	// When a peer is removed
	registry.Remove(peer)

	// Then the waiter wakes and the permit is still available
	select {
	case err := <-woke:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("AwaitSpace did not wake after a removal")
	}
	req.Equal(1, registry.Available())
	remaining, err := registry.TryAdmit(newRecordingPeer())
	req.NoError(err)
	req.Equal(0, remaining)
}

func TestRegistry_AwaitSpace_Cancelled(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 1)
	_, _ = registry.TryAdmit(newRecordingPeer())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req.ErrorIs(registry.AwaitSpace(ctx), context.DeadlineExceeded)
}

func TestRegistry_Close_RefusesAdmissions(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, 2)
	p1 := newRecordingPeer()
	_, _ = registry.TryAdmit(p1)

	req.NoError(registry.Close())
	req.NoError(registry.Close())

	req.Equal(1, p1.Closed())
	req.Equal(0, registry.Len())
	_, err := registry.TryAdmit(newRecordingPeer())
	req.ErrorIs(err, errors.ErrRegistryClosed)
	req.ErrorIs(registry.ForceAdmit(newRecordingPeer()), errors.ErrRegistryClosed)
}

// Random admissions, forced admissions and removals never break the bounds.
func TestRegistry_SizeBoundsUnderRandomOperations(t *testing.T) {
	req := require.New(t)
	const capacity = 4
	registry := newTestRegistry(t, capacity)
	rng := rand.New(rand.NewSource(42))
	var live []*recordingPeer

	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0:
			p := newRecordingPeer()
			if _, err := registry.TryAdmit(p); err == nil {
				live = append(live, p)
			} else {
				req.ErrorIs(err, errors.ErrRegistryFull)
				// Listener behaviour: one forced admission, then wait for space
				if registry.Len() == capacity {
					req.NoError(registry.ForceAdmit(p))
					live = append(live, p)
				}
			}
		default:
			if len(live) == 0 {
				continue
			}
			idx := rng.Intn(len(live))
			req.True(registry.Remove(live[idx]))
			live = append(live[:idx], live[idx+1:]...)
		}

		size := registry.Len()
		req.GreaterOrEqual(size, 0)
		req.LessOrEqual(size, capacity+1)
		req.GreaterOrEqual(registry.Available(), 0)
		req.LessOrEqual(registry.Available(), capacity)
		req.Equal(len(live), size)
	}
}
