package e2e

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DrainScenarioSuite struct {
	BaseRelaySuite
}

func TestDrainScenarioSuite(t *testing.T) {
	suite.Run(t, new(DrainScenarioSuite))
}

// TestFullRelayDrainsAndRecovers fills the relay, overshoots by one peer,
// then frees slots by closing peers and checks the relay accepts again.
func (s *DrainScenarioSuite) TestFullRelayDrainsAndRecovers() {
	t := s.T()
	o, stats, path := s.StartRelay(t)
	capacity := s.Config.MaxPeers
	if capacity < 2 {
		t.Skip("the scenario needs a capacity of at least 2")
	}

	s.Step(t, "Fill the relay")
	var peers []*Peer
	for i := 0; i < capacity; i++ {
		peers = append(peers, s.Connect(t, path))
	}
	s.Eventually(func() bool { return o.Registry().Len() == capacity }, 2*time.Second, 10*time.Millisecond)

	s.Step(t, "One peer too many")
	overflow := s.Connect(t, path)
	s.Eventually(func() bool { return o.Registry().Len() == capacity+1 }, 2*time.Second, 10*time.Millisecond)
	s.Eventually(func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	s.Step(t, "Everybody hears hello")
	s.Require().NoError(o.Publish("hello"))
	for _, p := range append(peers, overflow) {
		msg, err := p.Next(2 * time.Second)
		s.Require().NoError(err)
		s.Equal("hello", msg)
	}

	s.Step(t, "Early peers leave")
	s.Require().NoError(peers[0].Close())
	s.Require().NoError(peers[1].Close())
	s.Require().NoError(o.Publish("bye"))
	msg, err := overflow.Next(2 * time.Second)
	s.Require().NoError(err)
	s.Equal("bye", msg)
	s.Eventually(func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Step(t, "A newcomer is accepted again")
	want := o.Registry().Len() + 1
	newcomer := s.Connect(t, path)
	s.Eventually(func() bool { return o.Registry().Len() == want }, 2*time.Second, 10*time.Millisecond)
	s.Require().NoError(o.Publish("again"))
	msg, err = newcomer.Next(2 * time.Second)
	s.Require().NoError(err)
	s.Equal("again", msg)

	s.Equal(uint64(1), stats.GetLatest().PeersForced)
	s.GreaterOrEqual(stats.GetLatest().PeersRetired, uint64(1))
}
