// Package domain contains the core concepts of the relay: peers, lifecycle
// flags and the startup handshake shared by the workers.
// No socket management or scheduling logic should be added here.
package domain

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Peer is the handle of one accepted connection.
// It is owned by the registry once admitted.
type Peer struct {
	id          uuid.UUID
	conn        net.Conn
	ConnectedAt time.Time

	closeOnce sync.Once
	closeErr  error
}

func NewPeer(conn net.Conn) *Peer {
	return &Peer{
		id:          uuid.New(),
		conn:        conn,
		ConnectedAt: time.Now().UTC(),
	}
}

func (p *Peer) ID() string { return p.id.String() }

func (p *Peer) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// Close closes the underlying connection once; later calls return the first result.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}
