package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// RelayStats is a point-in-time copy of the relay counters.
type RelayStats struct {
	PeersAdmitted  uint64 `json:"peers_admitted"`
	PeersForced    uint64 `json:"peers_forced"`
	PeersRetired   uint64 `json:"peers_retired"`
	WriteErrors    uint64 `json:"write_errors"`
	Broadcasts     uint64 `json:"broadcasts"`
	BytesSent      uint64 `json:"bytes_sent"`
	DrainCycles    uint64 `json:"drain_cycles"`
	AcceptRetries  uint64 `json:"accept_retries"`
	PublishedTotal uint64 `json:"published_total"`
	Truncated      uint64 `json:"truncated"`

	AllocMemMb uint64        `json:"alloc_mem_mb"`
	NumGC      uint32        `json:"num_gc"`
	Uptime     time.Duration `json:"uptime"`
}

// MonitoringManager holds the relay counters.
// Every method is safe on a nil receiver so components can run without one.
type MonitoringManager struct {
	startedAt time.Time

	peersAdmitted  atomic.Uint64
	peersForced    atomic.Uint64
	peersRetired   atomic.Uint64
	writeErrors    atomic.Uint64
	broadcasts     atomic.Uint64
	bytesSent      atomic.Uint64
	drainCycles    atomic.Uint64
	acceptRetries  atomic.Uint64
	publishedTotal atomic.Uint64
	truncated      atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{startedAt: time.Now()}
}

func (mm *MonitoringManager) IncrPeersAdmitted() {
	if mm != nil {
		mm.peersAdmitted.Add(1)
	}
}

func (mm *MonitoringManager) IncrPeersForced() {
	if mm != nil {
		mm.peersForced.Add(1)
	}
}

func (mm *MonitoringManager) IncrPeersRetired() {
	if mm != nil {
		mm.peersRetired.Add(1)
	}
}

func (mm *MonitoringManager) IncrWriteErrors() {
	if mm != nil {
		mm.writeErrors.Add(1)
	}
}

// IncrBroadcast records one broadcast pass and the bytes it delivered.
func (mm *MonitoringManager) IncrBroadcast(bytes uint64) {
	if mm != nil {
		mm.broadcasts.Add(1)
		mm.bytesSent.Add(bytes)
	}
}

func (mm *MonitoringManager) IncrDrainCycles() {
	if mm != nil {
		mm.drainCycles.Add(1)
	}
}

func (mm *MonitoringManager) IncrAcceptRetries() {
	if mm != nil {
		mm.acceptRetries.Add(1)
	}
}

func (mm *MonitoringManager) IncrPublished(truncated bool) {
	if mm == nil {
		return
	}
	mm.publishedTotal.Add(1)
	if truncated {
		mm.truncated.Add(1)
	}
}

func (mm *MonitoringManager) GetLatest() RelayStats {
	if mm == nil {
		return RelayStats{}
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RelayStats{
		PeersAdmitted:  mm.peersAdmitted.Load(),
		PeersForced:    mm.peersForced.Load(),
		PeersRetired:   mm.peersRetired.Load(),
		WriteErrors:    mm.writeErrors.Load(),
		Broadcasts:     mm.broadcasts.Load(),
		BytesSent:      mm.bytesSent.Load(),
		DrainCycles:    mm.drainCycles.Load(),
		AcceptRetries:  mm.acceptRetries.Load(),
		PublishedTotal: mm.publishedTotal.Load(),
		Truncated:      mm.truncated.Load(),
		AllocMemMb:     m.Alloc / 1024 / 1024,
		NumGC:          m.NumGC,
		Uptime:         time.Since(mm.startedAt),
	}
}
