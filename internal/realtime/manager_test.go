package realtime

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/rtlink/internal/backoff"
	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/dispatch"
	"github.com/matheus3301/rtlink/internal/presence"
	"github.com/matheus3301/rtlink/internal/status"
	"github.com/matheus3301/rtlink/internal/transport"
	"github.com/matheus3301/rtlink/internal/typing"
)

var errRefused = errors.New("connection refused")

func TestFirstAttemptSucceeds(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	moves := h.transitions()
	if len(moves) != 2 ||
		moves[0].From != status.Disconnected || moves[0].To != status.Connecting ||
		moves[1].From != status.Connecting || moves[1].To != status.Connected {
		t.Fatalf("transitions = %+v", moves)
	}

	snap := h.m.State()
	if snap.AttemptCount != 0 {
		t.Errorf("AttemptCount = %d, want 0", snap.AttemptCount)
	}
	if !snap.LastConnectedAt.Equal(h.clock.Now()) {
		t.Errorf("LastConnectedAt = %v, want %v", snap.LastConnectedAt, h.clock.Now())
	}
	if !snap.IsConnected || snap.IsConnecting {
		t.Errorf("flags = connected %v connecting %v", snap.IsConnected, snap.IsConnecting)
	}
}

func TestConnectWithoutPrincipalDoesNothing(t *testing.T) {
	h := newHarness(t, "", DefaultConfig())

	h.m.Start()
	h.m.Connect()

	if got := h.m.State().State; got != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", got)
	}
	if n := h.tr.connectCount(); n != 0 {
		t.Errorf("transport Connect called %d times", n)
	}
	if moves := h.transitions(); len(moves) != 0 {
		t.Errorf("unexpected transitions %+v", moves)
	}
}

func TestConnectIsIdempotentWhileConnecting(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Connect()
	h.m.Connect()
	h.m.Connect()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	h.m.Connect()

	if n := h.tr.connectCount(); n != 1 {
		t.Errorf("transport Connect called %d times, want 1", n)
	}
}

func TestRetriesExhaustToDisconnected(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())
	policy := backoff.Default()

	h.m.Start()
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		h.tr.awaitAttempt(t, errRefused)
		if attempt == policy.MaxAttempts {
			break
		}
		waitFor(t, "retry scheduled", func() bool {
			s := h.m.State()
			return s.State == status.ReconnectPending && s.AttemptCount == attempt
		})

		delay := policy.Delay(attempt)
		h.clock.Advance(delay - time.Millisecond)
		if got := h.m.State().State; got != status.ReconnectPending {
			t.Fatalf("attempt %d: state %s before the %v delay elapsed", attempt, got, delay)
		}
		h.clock.Advance(time.Millisecond)
		if got := h.m.State().State; got != status.Connecting {
			t.Fatalf("attempt %d: state %s after delay, want CONNECTING", attempt, got)
		}
	}

	waitFor(t, "terminal failure", func() bool {
		s := h.m.State()
		return s.State == status.Disconnected && s.AttemptCount == policy.MaxAttempts
	})
	h.clock.Advance(60 * time.Second)

	snap := h.m.State()
	if snap.LastError == "" {
		t.Error("LastError empty after exhausting retries")
	}
	if snap.State != status.Disconnected {
		t.Errorf("state = %s after waiting, want DISCONNECTED", snap.State)
	}
	if n := h.tr.connectCount(); n != policy.MaxAttempts {
		t.Errorf("transport Connect called %d times, want %d", n, policy.MaxAttempts)
	}
	for _, mv := range h.transitions() {
		if mv.Snapshot.IsConnected && mv.Snapshot.IsConnecting {
			t.Errorf("snapshot with both flags set: %+v", mv.Snapshot)
		}
	}
}

func TestSuccessResetsAttemptCount(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, errRefused)
	h.waitState(t, status.ReconnectPending)
	h.clock.Advance(backoff.DefaultBaseDelay)
	h.tr.awaitAttempt(t, errRefused)
	waitFor(t, "second failure", func() bool { return h.m.State().AttemptCount == 2 })
	h.clock.Advance(backoff.Default().Delay(2))
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	snap := h.m.State()
	if snap.AttemptCount != 0 || snap.LastError != "" {
		t.Errorf("after success: attempts %d, last error %q", snap.AttemptCount, snap.LastError)
	}
}

func TestReconnectResetsAndSettles(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, errRefused)
	h.waitState(t, status.ReconnectPending)

	h.m.Reconnect()
	snap := h.m.State()
	if snap.AttemptCount != 0 || snap.State != status.Disconnected {
		t.Fatalf("after Reconnect: %+v", snap)
	}

	h.clock.Advance(DefaultSettleDelay - time.Millisecond)
	if got := h.m.State().State; got != status.Disconnected {
		t.Fatalf("state %s before settle delay", got)
	}
	h.clock.Advance(time.Millisecond)
	if got := h.m.State().State; got != status.Connecting {
		t.Fatalf("state %s after settle delay, want CONNECTING", got)
	}
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	// The cancelled backoff timer must not start another attempt.
	h.clock.Advance(time.Minute)
	if n := h.tr.connectCount(); n != 2 {
		t.Errorf("transport Connect called %d times, want 2", n)
	}
}

func TestReconnectFromConnected(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	before := h.tr.disconnectCount()

	h.m.Reconnect()
	if h.tr.disconnectCount() != before+1 {
		t.Error("Reconnect did not tear down the transport")
	}
	h.clock.Advance(DefaultSettleDelay)
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
}

func TestDisconnectCancelsBackoff(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, errRefused)
	h.waitState(t, status.ReconnectPending)

	h.m.Disconnect()
	h.clock.Advance(time.Minute)

	snap := h.m.State()
	if snap.State != status.Disconnected || snap.AttemptCount != 0 {
		t.Errorf("after Disconnect: %+v", snap)
	}
	if n := h.tr.connectCount(); n != 1 {
		t.Errorf("transport Connect called %d times, want 1", n)
	}
}

func TestDisconnectDuringDialDiscardsResult(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	select {
	case <-h.tr.attempts:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection attempt")
	}
	h.m.Disconnect()

	waitFor(t, "stale dial to finish", func() bool { return h.tr.disconnectCount() >= 1 })
	if got := h.m.State().State; got != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", got)
	}

	// The cancelled dial returns through its context; nothing may reconnect.
	h.clock.Advance(time.Minute)
	if n := h.tr.connectCount(); n != 1 {
		t.Errorf("transport Connect called %d times, want 1", n)
	}
}

func TestDropWhileConnectedReconnects(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	h.clock.Advance(DefaultStableAfter)
	h.tr.drop(errors.New("read: connection reset"))
	if got := h.m.State(); got.State != status.Connecting || got.LastError == "" || got.AttemptCount != 0 {
		t.Fatalf("after drop: %+v", got)
	}
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
}

func TestShortLivedConnectionsBackOff(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())
	failures, _ := h.bus.Subscribe(bus.KindAttemptFailed, 16)
	policy := backoff.Default()

	h.m.Start()
	for i := 1; i <= policy.MaxAttempts; i++ {
		h.tr.awaitAttempt(t, nil)
		h.waitState(t, status.Connected)
		h.tr.drop(errors.New("closed by server"))

		snap := h.m.State()
		if snap.State != status.Disconnected || snap.AttemptCount != i {
			t.Fatalf("drop %d: %+v", i, snap)
		}
		if i == policy.MaxAttempts {
			break
		}
		h.clock.Advance(policy.Delay(i) - time.Millisecond)
		if n := h.tr.connectCount(); n != i {
			t.Fatalf("drop %d: reconnected before the backoff delay (%d connects)", i, n)
		}
		h.clock.Advance(time.Millisecond)
	}

	h.clock.Advance(time.Hour)
	if n := h.tr.connectCount(); n != policy.MaxAttempts {
		t.Errorf("transport Connect called %d times, want %d", n, policy.MaxAttempts)
	}
	if got := h.m.State().State; got != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", got)
	}

	var last AttemptFailure
	for n := 0; n < policy.MaxAttempts; n++ {
		select {
		case ev := <-failures:
			last = ev.Payload.(AttemptFailure)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d attempt failures, want %d", n, policy.MaxAttempts)
		}
	}
	if !last.Final || last.Attempt != policy.MaxAttempts {
		t.Errorf("last failure = %+v, want final attempt %d", last, policy.MaxAttempts)
	}
}

func TestStableConnectionRestoresBudget(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	h.tr.drop(errors.New("eof"))
	h.clock.Advance(backoff.DefaultBaseDelay)
	h.tr.awaitAttempt(t, errRefused)
	waitFor(t, "failed retry", func() bool { return h.m.State().AttemptCount == 2 })
	h.clock.Advance(backoff.Default().Delay(2))
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	h.tr.drop(errors.New("eof"))
	if got := h.m.State().AttemptCount; got != 3 {
		t.Fatalf("AttemptCount after third strike = %d, want 3", got)
	}
	h.clock.Advance(backoff.Default().Delay(3))
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	h.clock.Advance(DefaultStableAfter)
	h.tr.drop(errors.New("eof"))
	if got := h.m.State(); got.State != status.Connecting || got.AttemptCount != 0 {
		t.Fatalf("after a stable connection: %+v", got)
	}
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	h.tr.drop(errors.New("eof"))
	if got := h.m.State().AttemptCount; got != 1 {
		t.Errorf("AttemptCount = %d, want a fresh budget", got)
	}
}

func TestDropWithoutRecoveryStaysDisconnected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReconnectOnDrop = false
	h := newHarness(t, "42", cfg)

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	h.tr.drop(errors.New("eof"))
	h.clock.Advance(time.Minute)

	if got := h.m.State().State; got != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", got)
	}
	if n := h.tr.connectCount(); n != 1 {
		t.Errorf("transport Connect called %d times, want 1", n)
	}
}

func TestJoinedConversationsRejoinAfterReconnect(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	h.m.JoinConversation("c1")
	h.m.JoinConversation("c2")
	h.m.LeaveConversation("c2")
	h.m.JoinConversation("")

	h.clock.Advance(DefaultStableAfter)
	h.tr.drop(errors.New("eof"))
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	var joins, leaves []string
	waitFor(t, "rejoin", func() bool {
		joins, leaves = nil, nil
		for _, s := range h.tr.sentSignals() {
			ref, _ := s.payload.(ConversationRef)
			switch s.event {
			case transport.EventJoinConversation:
				joins = append(joins, ref.ConversationID)
			case transport.EventLeaveConversation:
				leaves = append(leaves, ref.ConversationID)
			}
		}
		return len(joins) == 3
	})
	if joins[0] != "c1" || joins[1] != "c2" || joins[2] != "c1" {
		t.Errorf("joins = %v, want [c1 c2 c1]", joins)
	}
	if len(leaves) != 1 || leaves[0] != "c2" {
		t.Errorf("leaves = %v", leaves)
	}
	if got := h.m.ConnectionStats().Joined; len(got) != 1 || got[0] != "c1" {
		t.Errorf("Joined = %v", got)
	}
}

func TestAutoConnectOncePerSession(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.ident.Set("42")
	h.ident.Set("42")
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	h.ident.Set("42")

	if n := h.tr.connectCount(); n != 1 {
		t.Fatalf("transport Connect called %d times, want 1", n)
	}

	h.ident.Clear()
	if got := h.m.State().State; got != status.Disconnected {
		t.Fatalf("state after logout = %s", got)
	}

	h.ident.Set("42")
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	if n := h.tr.connectCount(); n != 2 {
		t.Errorf("transport Connect called %d times, want 2", n)
	}
}

func TestPrincipalSwitchReconnects(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
	h.m.JoinConversation("c1")
	h.tr.emit("user_status", `{"user_id":5,"status":"online"}`)

	h.ident.Set("7")
	if n := h.tr.disconnectCount(); n == 0 {
		t.Fatal("transport kept the connection of the previous principal")
	}
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	if n := h.tr.connectCount(); n != 2 {
		t.Errorf("transport Connect called %d times, want 2", n)
	}
	stats := h.m.ConnectionStats()
	if len(stats.Joined) != 0 {
		t.Errorf("Joined = %v, want none after switching principal", stats.Joined)
	}
	if h.m.IsUserOnline(presence.FromInt(5)) {
		t.Error("presence of the previous session survived the switch")
	}
	if id, _ := h.ident.Current(); id != "7" {
		t.Errorf("principal = %q", id)
	}
}

func TestLoginAfterStartConnects(t *testing.T) {
	h := newHarness(t, "", DefaultConfig())

	h.m.Start()
	h.ident.Set("7")
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)
}

func TestTeardownSilencesAllTimers(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, errRefused)
	h.waitState(t, status.ReconnectPending)
	h.m.StartTyping("a")
	h.m.StartTyping("b")
	if h.clock.Pending() != 3 {
		t.Fatalf("pending timers = %d, want 3", h.clock.Pending())
	}

	h.m.Close()
	h.transitions()
	sent := len(h.tr.sentSignals())

	h.clock.Advance(time.Minute)

	if got := len(h.tr.sentSignals()); got != sent {
		t.Errorf("%d sends after teardown", got-sent)
	}
	if moves := h.transitions(); len(moves) != 0 {
		t.Errorf("transitions after teardown: %+v", moves)
	}
	if n := h.tr.connectCount(); n != 1 {
		t.Errorf("transport Connect called %d times, want 1", n)
	}
	if h.clock.Pending() != 0 {
		t.Errorf("pending timers after teardown = %d", h.clock.Pending())
	}

	h.m.Connect()
	if got := h.m.State().State; got != status.Disconnected {
		t.Errorf("Connect after Close moved to %s", got)
	}
}

func TestHandlersAndPresence(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	var messages, statuses []string
	var typed int
	h.m.SetEventHandlers(dispatch.Handlers{
		OnMessage:    func(p json.RawMessage) { messages = append(messages, string(p)) },
		OnUserStatus: func(p json.RawMessage) { statuses = append(statuses, string(p)) },
	})
	h.m.SetEventHandlers(dispatch.Handlers{
		OnTyping: func(json.RawMessage) { typed++ },
	})

	h.tr.emit("new_message", `{"id":1}`)
	h.tr.emit("user_typing", `{"conversation_id":"c1"}`)
	h.tr.emit("new_message", `{"id":2}`)
	h.tr.emit("user_status", `{"user_id":5,"status":"online"}`)
	h.tr.emit("user_status", `{"user_id":7,"status":"online"}`)
	h.tr.emit("user_status", `{"user_id":5,"status":"offline"}`)

	if len(messages) != 2 || typed != 1 {
		t.Errorf("messages = %v, typed = %d", messages, typed)
	}
	if len(statuses) != 3 {
		t.Errorf("consumer saw %d status events, want 3", len(statuses))
	}
	if h.m.IsUserOnline(presence.FromInt(5)) {
		t.Error("peer 5 should be offline")
	}
	if !h.m.IsUserOnline(presence.FromInt(7)) {
		t.Error("peer 7 should be online")
	}
	if got := h.m.ConnectionStats().OnlinePeers; len(got) != 1 || got[0] != "7" {
		t.Errorf("OnlinePeers = %v", got)
	}
}

func TestMarkAsRead(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.MarkAsRead("c1")
	h.m.MarkAsRead("c1", "m1", "m2")

	var got []ReadReceipt
	for _, s := range h.tr.sentSignals() {
		if s.event != transport.EventMarkRead {
			t.Fatalf("unexpected event %q", s.event)
		}
		got = append(got, s.payload.(ReadReceipt))
	}
	want := []ReadReceipt{
		{ConversationID: "c1", MessageID: ReadAll},
		{ConversationID: "c1", MessageID: "m1"},
		{ConversationID: "c1", MessageID: "m2"},
	}
	if len(got) != len(want) {
		t.Fatalf("receipts = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("receipt %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTypingThroughManager(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.StartTyping("c1")
	h.clock.Advance(500 * time.Millisecond)
	h.m.StartTyping("c1")
	if got := h.m.ConnectionStats().Typing; len(got) != 1 || got[0] != "c1" {
		t.Errorf("Typing = %v", got)
	}
	h.clock.Advance(typing.DefaultTimeout)

	var values []bool
	for _, s := range h.tr.sentSignals() {
		values = append(values, s.payload.(typing.Signal).IsTyping)
	}
	if len(values) != 3 || !values[0] || !values[1] || values[2] {
		t.Errorf("typing sends = %v, want [true true false]", values)
	}
}

func TestConnectionStats(t *testing.T) {
	h := newHarness(t, "42", DefaultConfig())

	h.m.Start()
	h.tr.awaitAttempt(t, nil)
	h.waitState(t, status.Connected)

	st := h.m.ConnectionStats()
	if !st.Connected || st.Transport != "fake" || st.State != status.Connected {
		t.Errorf("stats = %+v", st)
	}
	if st.LastConnectedAt.IsZero() {
		t.Error("LastConnectedAt zero while connected")
	}
}
