package domain

import "sync/atomic"

// LifecycleFlag is a one-shot shutdown flag. Once set it is never reset.
type LifecycleFlag struct {
	set atomic.Bool
}

// Set raises the flag and reports whether this call was the one that raised it.
func (f *LifecycleFlag) Set() bool {
	return f.set.CompareAndSwap(false, true)
}

func (f *LifecycleFlag) IsSet() bool {
	return f.set.Load()
}

type ListenerState int32

const (
	Listening ListenerState = iota
	Draining
	Stopped
)

func (s ListenerState) String() string {
	switch s {
	case Listening:
		return "LISTENING"
	case Draining:
		return "DRAINING"
	case Stopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}
