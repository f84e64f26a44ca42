package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/rtlink/internal/bus"
)

// State represents a connection lifecycle state.
type State string

const (
	Disconnected     State = "DISCONNECTED"
	Connecting       State = "CONNECTING"
	Connected        State = "CONNECTED"
	ReconnectPending State = "RECONNECT_PENDING"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Disconnected:     {Connecting},
	Connecting:       {Connected, ReconnectPending, Disconnected},
	Connected:        {Disconnected},
	ReconnectPending: {Connecting, Disconnected},
}

// Snapshot is the externally observable connection state. A new value replaces
// the previous one on every change; callers only ever receive copies.
type Snapshot struct {
	State           State
	IsConnected     bool
	IsConnecting    bool
	LastError       string    // empty when no error has been recorded
	AttemptCount    int       // consecutive failed attempts
	LastConnectedAt time.Time // zero until the first successful connect
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu   sync.RWMutex
	snap Snapshot
	bus  *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		snap: Snapshot{State: Disconnected},
		bus:  b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.State
}

// Snapshot returns a copy of the current connection state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Transition moves to a new state. update, if non-nil, edits a copy of the
// current snapshot before it replaces the old one. The connected and connecting
// flags are derived from the target state and cannot be set by update.
func (m *Machine) Transition(to State, update func(*Snapshot)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.snap.State
	if !slices.Contains(validTransitions[from], to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	m.replace(to, update)
	m.publish(from, to)
	return nil
}

// Update edits the snapshot without a state change, e.g. resetting the attempt
// counter on an explicit disconnect while already disconnected.
func (m *Machine) Update(update func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(m.snap.State, update)
}

func (m *Machine) replace(to State, update func(*Snapshot)) {
	next := m.snap
	if update != nil {
		update(&next)
	}
	next.State = to
	next.IsConnected = to == Connected
	next.IsConnecting = to == Connecting
	m.snap = next
}

func (m *Machine) publish(from, to State) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(bus.Event{
		Kind:      bus.KindStateChanged,
		Timestamp: time.Now(),
		Payload: StatusChange{
			From:     from,
			To:       to,
			Snapshot: m.snap,
		},
	})
}

// StatusChange is the payload for state change events.
type StatusChange struct {
	From     State
	To       State
	Snapshot Snapshot
}
