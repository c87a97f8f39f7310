package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandshake_Ready(t *testing.T) {
	req := require.New(t)
	hs := NewHandshake()

	// When the worker completes its initialization
	hs.Ready()

	// Then init-complete is raised without an error
	select {
	case <-hs.Done():
	case <-time.After(time.Second):
		req.Fail("init-complete notification not raised")
	}
	req.NoError(hs.Err())
	select {
	case <-hs.Failed():
		req.Fail("error notification raised on success")
	default:
	}
}

func TestHandshake_Fail_RaisesErrorBeforeCompletion(t *testing.T) {
	req := require.New(t)
	hs := NewHandshake()
	bindErr := fmt.Errorf("bind: address already in use")

	go hs.Fail(bindErr)

	// When the caller observes init-complete
	<-hs.Done()

	// Then the error notification is already visible
	select {
	case <-hs.Failed():
	default:
		req.Fail("error notification must precede init-complete")
	}
	req.ErrorIs(hs.Err(), bindErr)
}

func TestHandshake_ResolvesOnlyOnce(t *testing.T) {
	req := require.New(t)
	hs := NewHandshake()

	// Given a worker that reported success
	hs.Ready()

	// When it later reports a failure
	hs.Fail(fmt.Errorf("late failure"))

	// Then the first outcome wins
	req.NoError(hs.Err())
	req.NotPanics(hs.Ready)
}

func TestLifecycleFlag_OneShot(t *testing.T) {
	req := require.New(t)
	var flag LifecycleFlag

	req.False(flag.IsSet())
	req.True(flag.Set())
	req.False(flag.Set())
	req.True(flag.IsSet())
}

func TestListenerState_String(t *testing.T) {
	req := require.New(t)
	req.Equal("LISTENING", Listening.String())
	req.Equal("DRAINING", Draining.String())
	req.Equal("STOPPED", Stopped.String())
	req.Equal("UNKNOWN", ListenerState(42).String())
}
