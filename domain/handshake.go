package domain

import "sync"

// Handshake carries the two startup notifications of a worker:
// init-complete and error. A worker resolves it exactly once with
// Ready or Fail. Fail raises the error notification before the
// completion one, so a caller that waited on Done can read Err
// without racing.
type Handshake struct {
	once         sync.Once
	initComplete chan struct{}
	errNotifier  chan struct{}
	err          error
}

func NewHandshake() *Handshake {
	return &Handshake{
		initComplete: make(chan struct{}),
		errNotifier:  make(chan struct{}),
	}
}

func (h *Handshake) Ready() {
	h.once.Do(func() {
		close(h.initComplete)
	})
}

func (h *Handshake) Fail(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.errNotifier)
		close(h.initComplete)
	})
}

// Done is closed once the worker finished its initialization, successfully or not.
func (h *Handshake) Done() <-chan struct{} { return h.initComplete }

// Failed is closed when the initialization failed.
func (h *Handshake) Failed() <-chan struct{} { return h.errNotifier }

// Err returns the initialization error, nil if none has been notified.
func (h *Handshake) Err() error {
	select {
	case <-h.errNotifier:
		return h.err
	default:
		return nil
	}
}
