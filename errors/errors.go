package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrRegistryFull        = fmt.Errorf("registry is full")
	ErrRegistryClosed      = fmt.Errorf("registry is closed")
	ErrNilPeer             = fmt.Errorf("peer handle is nil")
	ErrInvalidCapacity     = fmt.Errorf("registry capacity must be at least 1")
	ErrInvalidBufferLength = fmt.Errorf("buffer length must be at least 2")
	ErrBroadcasterStopped  = fmt.Errorf("broadcaster is stopped")
	ErrMissingDependency   = fmt.Errorf("worker is missing a dependency")
	ErrNotStarted          = fmt.Errorf("orchestrator is not started")
)
