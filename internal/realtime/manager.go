// Package realtime maintains the persistent connection to the messaging
// server: lifecycle and backoff, event dispatch, conversation membership,
// typing debounce and presence.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/backoff"
	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/dispatch"
	"github.com/matheus3301/rtlink/internal/identity"
	"github.com/matheus3301/rtlink/internal/presence"
	"github.com/matheus3301/rtlink/internal/status"
	"github.com/matheus3301/rtlink/internal/timers"
	"github.com/matheus3301/rtlink/internal/transport"
	"github.com/matheus3301/rtlink/internal/typing"
)

const (
	DefaultSettleDelay = time.Second
	DefaultDialTimeout = 15 * time.Second
	DefaultStableAfter = 30 * time.Second

	reconnectSlot = "reconnect"
)

// Config tunes the manager. Zero values take defaults.
type Config struct {
	Policy          backoff.Policy
	SettleDelay     time.Duration
	TypingTimeout   time.Duration
	DialTimeout     time.Duration
	ReconnectOnDrop bool
	// StableAfter is how long a connection must stay up before a drop stops
	// counting as a failed attempt.
	StableAfter time.Duration
}

func (c Config) withDefaults() Config {
	c.Policy = c.Policy.WithDefaults()
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.TypingTimeout <= 0 {
		c.TypingTimeout = typing.DefaultTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.StableAfter <= 0 {
		c.StableAfter = DefaultStableAfter
	}
	return c
}

// DefaultConfig returns the stock policy with drop recovery enabled.
func DefaultConfig() Config {
	return Config{ReconnectOnDrop: true}.withDefaults()
}

// Manager owns the connection state machine.
//
// Every operation, timer callback and transport callback is applied under mu,
// so a transition never partially applies. Transport sends and consumer
// callbacks run outside mu. Dial results and timer callbacks carry the
// generation they were started in and are discarded once it has moved on.
type Manager struct {
	cfg      Config
	clock    timers.Clock
	tr       transport.Transport
	ident    *identity.Store
	machine  *status.Machine
	registry *dispatch.Registry
	peers    *presence.Peers
	typing   *typing.Tracker
	bus      *bus.Bus
	log      *zap.Logger

	mu         sync.Mutex
	retry      *timers.Keyed[string]
	gen        uint64
	inFlight   bool
	cancelDial context.CancelFunc
	earlyDrop  error
	// failures counts failed attempts and short-lived connections since the
	// last stable connection; unlike AttemptCount it survives a success.
	failures      int
	principal     string // user the one-shot autoconnect was armed for
	joined        map[string]struct{}
	unsubIdentity func()
	started       bool
	closed        bool
}

// NewManager wires the dispatcher and presence tracker to tr. Call Start to
// begin following the identity store.
func NewManager(cfg Config, tr transport.Transport, ident *identity.Store, b *bus.Bus, c timers.Clock, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = timers.Real()
	}
	if b == nil {
		b = bus.New()
	}
	m := &Manager{
		cfg:      cfg.withDefaults(),
		clock:    c,
		tr:       tr,
		ident:    ident,
		machine:  status.NewMachine(b),
		registry: dispatch.NewRegistry(),
		peers:    presence.NewPeers(),
		bus:      b,
		log:      log.Named("realtime"),
		joined:   make(map[string]struct{}),
	}
	m.retry = timers.NewKeyed[string](c, &m.mu)
	m.typing = typing.NewTracker(c, m.cfg.TypingTimeout, m.send, m.log)

	m.registry.Tap(dispatch.UserStatus, func(payload json.RawMessage) {
		if _, err := m.peers.Apply(payload); err != nil {
			m.log.Debug("ignoring user status", zap.Error(err))
		}
	})
	m.registry.Bind(tr)
	tr.OnDisconnect(m.onDrop)
	return m
}

// Start subscribes to the identity store and connects if a principal is
// already authenticated.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	unsub := m.ident.Subscribe(m.onPrincipal)
	m.mu.Lock()
	m.unsubIdentity = unsub
	m.mu.Unlock()

	if id, ok := m.ident.Current(); ok {
		m.onPrincipal(id)
	}
}

// State returns a copy of the connection state.
func (m *Manager) State() status.Snapshot {
	return m.machine.Snapshot()
}

// Connect starts the state machine. Without an authenticated principal it
// only logs. It is a no-op while an attempt is in flight, pending or the
// connection is up.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectLocked()
}

// Disconnect cancels pending timers and tears down the connection. No
// automatic reconnection follows.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.haltLocked()
	m.log.Info("disconnected by request")
	m.mu.Unlock()

	m.typing.CancelAll()
	m.tr.Disconnect()
}

// Reconnect tears everything down, resets the attempt counter and enters
// Connecting again after the settle delay, bypassing backoff.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.haltLocked()
	m.log.Info("reconnect requested", zap.Duration("settle", m.cfg.SettleDelay))
	m.retry.Schedule(reconnectSlot, m.cfg.SettleDelay, m.settleFired)
	m.mu.Unlock()

	m.typing.CancelAll()
	m.tr.Disconnect()
}

// Close is teardown: it cancels the reconnect timer and every typing timer,
// stops following the identity store and disconnects the transport,
// regardless of the current state.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.haltLocked()
	m.closed = true
	unsub := m.unsubIdentity
	m.unsubIdentity = nil
	clear(m.joined)
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.typing.Close()
	m.tr.Disconnect()
	m.peers.Reset()
	m.log.Info("connection manager closed")
}

// SetEventHandlers merges h into the current handler set.
func (m *Manager) SetEventHandlers(h dispatch.Handlers) {
	m.registry.Set(h)
}

// IsUserOnline reports whether peer is believed online. The answer comes from
// the local presence cache and may be stale.
func (m *Manager) IsUserOnline(peer presence.PeerID) bool {
	return m.peers.IsOnline(peer)
}

func (m *Manager) connectLocked() {
	if m.closed {
		return
	}
	if _, ok := m.ident.Current(); !ok {
		m.log.Info("connect skipped: no authenticated principal")
		return
	}
	if m.inFlight || m.machine.Current() != status.Disconnected {
		m.log.Debug("connect ignored", zap.String("state", string(m.machine.Current())))
		return
	}
	m.beginAttemptLocked()
}

// haltLocked invalidates in-flight work and moves to Disconnected with a
// fresh attempt budget.
func (m *Manager) haltLocked() {
	m.gen++
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.inFlight = false
	m.failures = 0
	m.retry.CancelAll()

	reset := func(s *status.Snapshot) { s.AttemptCount = 0 }
	if m.machine.Current() == status.Disconnected {
		m.machine.Update(reset)
		return
	}
	m.transition(status.Disconnected, reset)
}

func (m *Manager) beginAttemptLocked() {
	if err := m.transition(status.Connecting, nil); err != nil {
		return
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	m.cancelDial = cancel
	m.inFlight = true
	m.earlyDrop = nil

	attempt := m.machine.Snapshot().AttemptCount + 1
	m.log.Info("connecting", zap.String("transport", m.tr.Name()), zap.Int("attempt", attempt))
	go m.dial(ctx, gen)
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	err := m.tr.Connect(ctx)
	m.finishAttempt(gen, err)
}

func (m *Manager) finishAttempt(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.closed {
		orphan := err == nil && !m.inFlight && m.machine.Current() != status.Connected
		m.mu.Unlock()
		if orphan {
			m.log.Debug("closing connection from a superseded attempt")
			m.tr.Disconnect()
		}
		return
	}

	m.inFlight = false
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if err == nil && m.earlyDrop != nil {
		err = m.earlyDrop
	}
	if err != nil {
		m.attemptFailedLocked(err)
		m.mu.Unlock()
		return
	}

	now := m.clock.Now()
	m.transition(status.Connected, func(s *status.Snapshot) {
		s.AttemptCount = 0
		s.LastError = ""
		s.LastConnectedAt = now
	})
	rooms := m.joinedLocked()
	m.mu.Unlock()

	m.log.Info("connected", zap.String("transport", m.tr.Name()), zap.Int("rejoin", len(rooms)))
	for _, id := range rooms {
		_ = m.send(transport.EventJoinConversation, ConversationRef{ConversationID: id})
	}
}

func (m *Manager) attemptFailedLocked(err error) {
	attempt := m.machine.Snapshot().AttemptCount + 1
	m.failures = attempt
	record := func(s *status.Snapshot) {
		s.AttemptCount = attempt
		s.LastError = err.Error()
	}

	failure := AttemptFailure{Attempt: attempt, Error: err.Error()}
	if m.cfg.Policy.ShouldRetry(attempt) {
		failure.Delay = m.cfg.Policy.Delay(attempt)
		m.transition(status.ReconnectPending, record)
		m.retry.Schedule(reconnectSlot, failure.Delay, m.retryFired)
		m.log.Warn("connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", failure.Delay),
			zap.Error(err),
		)
	} else {
		failure.Final = true
		m.failures = 0
		m.transition(status.Disconnected, record)
		m.log.Error("giving up after repeated failures",
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}

	m.bus.Publish(bus.Event{
		Kind:      bus.KindAttemptFailed,
		Timestamp: m.clock.Now(),
		Payload:   failure,
	})
}

// retryFired runs under mu once a backoff delay elapses.
func (m *Manager) retryFired() {
	if m.closed || m.machine.Current() != status.ReconnectPending {
		return
	}
	if _, ok := m.ident.Current(); !ok {
		m.log.Info("retry dropped: principal logged out")
		m.transition(status.Disconnected, nil)
		return
	}
	m.beginAttemptLocked()
}

// settleFired runs under mu when a connect deferred from Disconnected comes
// due: the reconnect settle delay or the wait after an unstable drop.
func (m *Manager) settleFired() {
	if m.closed || m.machine.Current() != status.Disconnected {
		return
	}
	m.connectLocked()
}

// onDrop is called by the transport when an established connection is lost.
func (m *Manager) onDrop(err error) {
	if err == nil {
		err = errors.New("connection closed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	switch m.machine.Current() {
	case status.Connecting:
		if m.inFlight {
			m.earlyDrop = err
		}
		return
	case status.Connected:
	default:
		return
	}

	uptime := m.clock.Now().Sub(m.machine.Snapshot().LastConnectedAt)
	if !m.cfg.ReconnectOnDrop {
		m.log.Warn("connection dropped", zap.Duration("uptime", uptime), zap.Error(err))
		m.transition(status.Disconnected, func(s *status.Snapshot) { s.LastError = err.Error() })
		return
	}
	if uptime >= m.cfg.StableAfter {
		m.log.Warn("connection dropped, reconnecting", zap.Duration("uptime", uptime), zap.Error(err))
		m.failures = 0
		m.transition(status.Disconnected, func(s *status.Snapshot) { s.LastError = err.Error() })
		m.connectLocked()
		return
	}
	m.unstableDropLocked(uptime, err)
}

// unstableDropLocked charges a drop that came before StableAfter against the
// attempt budget. The retry waits in Disconnected so that an explicit
// Disconnect or Connect still applies.
func (m *Manager) unstableDropLocked(uptime time.Duration, err error) {
	m.failures++
	attempt := m.failures
	record := func(s *status.Snapshot) {
		s.AttemptCount = attempt
		s.LastError = err.Error()
	}

	failure := AttemptFailure{Attempt: attempt, Error: err.Error()}
	if m.cfg.Policy.ShouldRetry(attempt) {
		failure.Delay = m.cfg.Policy.Delay(attempt)
		m.transition(status.Disconnected, record)
		m.retry.Schedule(reconnectSlot, failure.Delay, m.settleFired)
		m.log.Warn("connection dropped shortly after connecting",
			zap.Duration("uptime", uptime),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", failure.Delay),
			zap.Error(err),
		)
	} else {
		failure.Final = true
		m.failures = 0
		m.transition(status.Disconnected, record)
		m.log.Error("giving up on an unstable connection",
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}

	m.bus.Publish(bus.Event{
		Kind:      bus.KindAttemptFailed,
		Timestamp: m.clock.Now(),
		Payload:   failure,
	})
}

func (m *Manager) onPrincipal(userID string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if userID == "" {
		m.principal = ""
		clear(m.joined)
		m.mu.Unlock()

		m.log.Info("principal logged out")
		m.Disconnect()
		m.peers.Reset()
		return
	}
	if m.principal == userID {
		m.mu.Unlock()
		return
	}

	if prev := m.principal; prev != "" {
		m.principal = ""
		clear(m.joined)
		m.mu.Unlock()

		m.log.Info("principal switched", zap.String("from", prev), zap.String("to", userID))
		m.Disconnect()
		m.peers.Reset()

		m.mu.Lock()
		if m.closed || m.principal != "" {
			m.mu.Unlock()
			return
		}
	}

	m.principal = userID
	m.log.Info("principal authenticated, connecting", zap.String("user_id", userID))
	m.connectLocked()
	m.mu.Unlock()
}

func (m *Manager) transition(to status.State, update func(*status.Snapshot)) error {
	err := m.machine.Transition(to, update)
	if err != nil {
		m.log.Error("state transition rejected", zap.Error(err))
	}
	return err
}
