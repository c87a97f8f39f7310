package e2e

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"socket-relay/observability"
	"socket-relay/runtime"
	"socket-relay/runtime/workers"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// Step prints a colorized header for a scenario step
func (s *BaseRelaySuite) Step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// StartRelay runs a full relay on a fresh socket path and stops it with the test.
func (s *BaseRelaySuite) StartRelay(t *testing.T) (*runtime.Orchestrator, *observability.MonitoringManager, string) {
	dir, err := os.MkdirTemp("", "e2e")
	s.Require().NoError(err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "relay.sock")

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	stats := observability.NewMonitoringManager()
	o, err := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 0), stats,
		path, s.Config.MaxPeers, s.Config.BufferLength)
	s.Require().NoError(err)
	s.Require().NoError(o.Start(context.Background()))
	t.Cleanup(func() { _ = o.Stop() })
	return o, stats, path
}

// Peer is a test client reading NUL-terminated messages.
type Peer struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (s *BaseRelaySuite) Connect(t *testing.T, path string) *Peer {
	conn, err := net.DialTimeout("unix", path, time.Second)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = conn.Close() })
	return &Peer{conn: conn, reader: bufio.NewReader(conn)}
}

// Next returns the next message without its terminator.
func (p *Peer) Next(timeout time.Duration) (string, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	msg, err := p.reader.ReadString(0)
	if err != nil {
		return "", err
	}
	return msg[:len(msg)-1], nil
}

func (p *Peer) Close() error { return p.conn.Close() }
