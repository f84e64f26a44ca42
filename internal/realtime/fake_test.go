package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/identity"
	"github.com/matheus3301/rtlink/internal/status"
	"github.com/matheus3301/rtlink/internal/timers/timerstest"
	"github.com/matheus3301/rtlink/internal/transport"
)

type sentSignal struct {
	event   string
	payload any
}

// fakeTransport blocks every Connect until the test resolves it.
type fakeTransport struct {
	mu          sync.Mutex
	listeners   map[string]transport.Listener
	onDrop      func(error)
	connected   bool
	connects    int
	disconnects int
	sent        []sentSignal

	attempts chan struct{}
	results  chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		listeners: make(map[string]transport.Listener),
		attempts:  make(chan struct{}, 16),
		results:   make(chan error),
	}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
	f.attempts <- struct{}{}

	select {
	case err := <-f.results:
		if err == nil {
			f.mu.Lock()
			f.connected = true
			f.mu.Unlock()
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnects++
}

// Send records every attempted send, connected or not.
func (f *fakeTransport) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSignal{event: event, payload: payload})
	if !f.connected {
		return transport.ErrNotConnected
	}
	return nil
}

func (f *fakeTransport) On(event string, l transport.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[event] = l
}

func (f *fakeTransport) OnDisconnect(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDrop = fn
}

func (f *fakeTransport) emit(event, payload string) {
	f.mu.Lock()
	l := f.listeners[event]
	f.mu.Unlock()
	if l != nil {
		l(json.RawMessage(payload))
	}
}

func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	f.connected = false
	cb := f.onDrop
	f.mu.Unlock()
	cb(err)
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeTransport) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *fakeTransport) sentSignals() []sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSignal(nil), f.sent...)
}

// awaitAttempt waits for the next Connect call and resolves it with err.
func (f *fakeTransport) awaitAttempt(t *testing.T, err error) {
	t.Helper()
	select {
	case <-f.attempts:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection attempt")
	}
	select {
	case f.results <- err:
	case <-time.After(2 * time.Second):
		t.Fatal("attempt did not take its result")
	}
}

type harness struct {
	m     *Manager
	tr    *fakeTransport
	clock *timerstest.Fake
	ident *identity.Store
	bus   *bus.Bus
	moves <-chan bus.Event
}

func newHarness(t *testing.T, userID string, cfg Config) *harness {
	t.Helper()
	h := &harness{
		tr:    newFakeTransport(),
		clock: timerstest.NewFake(),
		ident: identity.NewStore(userID),
		bus:   bus.New(),
	}
	h.moves, _ = h.bus.Subscribe(bus.KindStateChanged, 256)
	h.m = NewManager(cfg, h.tr, h.ident, h.bus, h.clock, nil)
	t.Cleanup(h.m.Close)
	return h
}

// transitions drains the state changes published so far.
func (h *harness) transitions() []status.StatusChange {
	var out []status.StatusChange
	for {
		select {
		case ev := <-h.moves:
			out = append(out, ev.Payload.(status.StatusChange))
		default:
			return out
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) waitState(t *testing.T, want status.State) {
	t.Helper()
	waitFor(t, string(want), func() bool { return h.m.State().State == want })
}
