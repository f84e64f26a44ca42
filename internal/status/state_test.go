package status

import (
	"testing"
	"time"

	"github.com/matheus3301/rtlink/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
	snap := m.Snapshot()
	if snap.IsConnected || snap.IsConnecting || snap.AttemptCount != 0 || snap.LastError != "" {
		t.Errorf("initial snapshot = %+v, want zero flags", snap)
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Connecting, Connected},
		{Connecting, ReconnectPending},
		{Connecting, Disconnected},
		{Connected, Disconnected},
		{ReconnectPending, Connecting},
		{ReconnectPending, Disconnected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to, nil); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connected},
		{Disconnected, ReconnectPending},
		{Disconnected, Disconnected},
		{Connected, Connecting},
		{Connected, ReconnectPending},
		{ReconnectPending, Connected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to, nil); err == nil {
				t.Errorf("Transition(%s -> %s) should fail", tt.from, tt.to)
			}
			if m.Current() != tt.from {
				t.Errorf("state = %s, want %s (unchanged)", m.Current(), tt.from)
			}
		})
	}
}

// TestFlagsNeverBothSet walks every reachable state and checks that the
// connected and connecting flags are mutually exclusive.
func TestFlagsNeverBothSet(t *testing.T) {
	for _, target := range []State{Disconnected, Connecting, Connected, ReconnectPending} {
		m := NewMachine(nil)
		walkTo(t, m, target)
		snap := m.Snapshot()
		if snap.IsConnected && snap.IsConnecting {
			t.Errorf("%s: both IsConnected and IsConnecting set", target)
		}
		if snap.IsConnected != (target == Connected) {
			t.Errorf("%s: IsConnected = %v", target, snap.IsConnected)
		}
		if snap.IsConnecting != (target == Connecting) {
			t.Errorf("%s: IsConnecting = %v", target, snap.IsConnecting)
		}
	}
}

func TestTransitionCannotForceFlags(t *testing.T) {
	m := NewMachine(nil)
	err := m.Transition(Connecting, func(s *Snapshot) {
		s.IsConnected = true
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Snapshot().IsConnected {
		t.Error("IsConnected = true while CONNECTING")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	m := NewMachine(nil)
	snap := m.Snapshot()
	snap.AttemptCount = 42
	if m.Snapshot().AttemptCount != 0 {
		t.Error("mutating a returned snapshot changed the machine")
	}
}

func TestUpdateKeepsState(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Connecting)
	_ = m.Transition(Disconnected, func(s *Snapshot) {
		s.AttemptCount = 5
		s.LastError = "dial refused"
	})

	m.Update(func(s *Snapshot) { s.AttemptCount = 0 })

	snap := m.Snapshot()
	if snap.State != Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", snap.State)
	}
	if snap.AttemptCount != 0 {
		t.Errorf("AttemptCount = %d, want 0", snap.AttemptCount)
	}
	if snap.LastError != "dial refused" {
		t.Errorf("LastError = %q, want preserved", snap.LastError)
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("connection.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindStateChanged {
			t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStateChanged)
		}
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
		}
		if change.From != Disconnected || change.To != Connecting {
			t.Errorf("change = %v -> %v, want DISCONNECTED -> CONNECTING", change.From, change.To)
		}
		if !change.Snapshot.IsConnecting {
			t.Error("published snapshot should have IsConnecting set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for state change event")
	}
}

// TestRetryCycle walks a failed attempt through backoff back into a
// successful connection: CONNECTING → RECONNECT_PENDING → CONNECTING → CONNECTED.
func TestRetryCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Connecting)

	steps := []State{ReconnectPending, Connecting, Connected}
	for _, s := range steps {
		if err := m.Transition(s, nil); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Connected {
		t.Errorf("final state = %s, want CONNECTED", m.Current())
	}
}

// walkTo transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected:     {},
		Connecting:       {Connecting},
		Connected:        {Connecting, Connected},
		ReconnectPending: {Connecting, ReconnectPending},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s, nil); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
