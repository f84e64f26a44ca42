package realtime

import (
	"time"

	"github.com/matheus3301/rtlink/internal/presence"
	"github.com/matheus3301/rtlink/internal/status"
)

// Stats is a diagnostic snapshot. It is not part of the functional contract.
type Stats struct {
	Connected       bool
	State           status.State
	Transport       string
	AttemptCount    int
	LastError       string
	LastConnectedAt time.Time
	OnlinePeers     []presence.PeerID
	Joined          []string
	Typing          []string
}

// ConnectionStats collects a debug snapshot of the manager.
func (m *Manager) ConnectionStats() Stats {
	snap := m.machine.Snapshot()

	m.mu.Lock()
	joined := m.joinedLocked()
	m.mu.Unlock()

	return Stats{
		Connected:       snap.IsConnected,
		State:           snap.State,
		Transport:       m.tr.Name(),
		AttemptCount:    snap.AttemptCount,
		LastError:       snap.LastError,
		LastConnectedAt: snap.LastConnectedAt,
		OnlinePeers:     m.peers.List(),
		Joined:          joined,
		Typing:          m.typing.Active(),
	}
}
