package runtime

import (
	"fmt"
	"socket-relay/errors"
	"strings"
	"sync"
)

// PendingMessage is the single broadcast slot. It holds at most Cap()-1
// bytes followed by a NUL terminator. Writers overwrite, the last one wins.
type PendingMessage struct {
	mu     sync.Mutex
	buf    []byte
	length int
}

func NewPendingMessage(bufLen int) (*PendingMessage, error) {
	if bufLen < 2 {
		return nil, fmt.Errorf("%w: got %d", errors.ErrInvalidBufferLength, bufLen)
	}
	return &PendingMessage{buf: make([]byte, bufLen)}, nil
}

// Store copies text into the slot and reports whether it had to be truncated.
// Text stops at its first NUL byte, like a C string would.
func (m *PendingMessage) Store(text string) bool {
	if i := strings.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.length = copy(m.buf[:len(m.buf)-1], text)
	m.buf[m.length] = 0
	return m.length < len(text)
}

// Frame returns a copy of the stored message including its terminator.
func (m *PendingMessage) Frame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameLocked()
}

func (m *PendingMessage) frameLocked() []byte {
	frame := make([]byte, m.length+1)
	copy(frame, m.buf[:m.length+1])
	return frame
}

func (m *PendingMessage) Cap() int { return len(m.buf) }
