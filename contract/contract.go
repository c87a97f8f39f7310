//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// PeerHandle is one connected peer's byte stream as seen by the registry.
// Close must be safe to call more than once.
type PeerHandle interface {
	ID() string
	Write(p []byte) (int, error)
	Close() error
}

// IPublisher accepts text to be relayed to every connected peer.
type IPublisher interface {
	Publish(text string) error
}

// IOccupancy exposes a read-only view of the registry size.
type IOccupancy interface {
	Len() int
	Available() int
	Capacity() int
}

type IOrchestrator interface {
	IPublisher
	Start(ctx context.Context) error
	Stop() error
	Failed() <-chan struct{}
}
