package runtime

import (
	"sync"

	"github.com/google/uuid"
)

// recordingPeer is a PeerHandle that keeps every frame written to it.
type recordingPeer struct {
	id string

	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	closed   int
}

func newRecordingPeer() *recordingPeer {
	return &recordingPeer{id: uuid.NewString()}
}

func (p *recordingPeer) failWith(err error) *recordingPeer {
	p.writeErr = err
	return p
}

func (p *recordingPeer) ID() string { return p.id }

func (p *recordingPeer) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	frame := make([]byte, len(b))
	copy(frame, b)
	p.frames = append(p.frames, frame)
	return len(b), nil
}

func (p *recordingPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *recordingPeer) Frames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]string, 0, len(p.frames))
	for _, f := range p.frames {
		res = append(res, string(f))
	}
	return res
}

func (p *recordingPeer) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
