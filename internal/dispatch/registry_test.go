package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/matheus3301/rtlink/internal/transport"
)

// fakeRegistrar records every listener installed per event name.
type fakeRegistrar struct {
	listeners map[string][]transport.Listener
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{listeners: make(map[string][]transport.Listener)}
}

func (f *fakeRegistrar) On(event string, l transport.Listener) {
	f.listeners[event] = append(f.listeners[event], l)
}

func (f *fakeRegistrar) emit(event string, payload string) {
	for _, l := range f.listeners[event] {
		l(json.RawMessage(payload))
	}
}

func TestBindInstallsOneListenerPerKind(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()

	if !r.Bind(reg) {
		t.Fatal("first Bind() = false")
	}
	if r.Bind(reg) {
		t.Error("second Bind() = true, want false")
	}

	if len(reg.listeners) != len(Kinds()) {
		t.Errorf("listeners for %d events, want %d", len(reg.listeners), len(Kinds()))
	}
	for _, k := range Kinds() {
		if n := len(reg.listeners[k.String()]); n != 1 {
			t.Errorf("%s: %d listeners, want 1", k, n)
		}
	}
}

// TestMergeKeepsEarlierHandlers registers a message handler, then a typing
// handler, and checks the message handler survives the second call.
func TestMergeKeepsEarlierHandlers(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()
	r.Bind(reg)

	var gotA, gotB []string
	r.Set(Handlers{OnMessage: func(p json.RawMessage) { gotA = append(gotA, string(p)) }})
	r.Set(Handlers{OnTyping: func(p json.RawMessage) { gotB = append(gotB, string(p)) }})

	reg.emit("new_message", `{"id":1}`)
	reg.emit("user_typing", `{"conversation_id":"c1"}`)
	reg.emit("new_message", `{"id":2}`)

	if len(gotA) != 2 || gotA[0] != `{"id":1}` || gotA[1] != `{"id":2}` {
		t.Errorf("message handler got %v", gotA)
	}
	if len(gotB) != 1 || gotB[0] != `{"conversation_id":"c1"}` {
		t.Errorf("typing handler got %v", gotB)
	}
}

func TestReplacementTakesEffectOnNextEvent(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()
	r.Bind(reg)

	var first, second int
	r.Set(Handlers{OnUserJoined: func(json.RawMessage) { first++ }})
	reg.emit("user_joined", `{}`)

	r.Set(Handlers{OnUserJoined: func(json.RawMessage) { second++ }})
	reg.emit("user_joined", `{}`)
	reg.emit("user_joined", `{}`)

	if first != 1 || second != 2 {
		t.Errorf("first = %d, second = %d; want 1 and 2", first, second)
	}
}

func TestHandlerReplacedFromInsideItself(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()
	r.Bind(reg)

	calls := 0
	var next Handler = func(json.RawMessage) { calls += 10 }
	r.Set(Handlers{OnMessagesRead: func(json.RawMessage) {
		calls++
		r.Set(Handlers{OnMessagesRead: next})
	}})

	reg.emit("messages_read", `{}`)
	reg.emit("messages_read", `{}`)

	if calls != 11 {
		t.Errorf("calls = %d, want 11", calls)
	}
}

func TestUnsetKindIsIgnored(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()
	r.Bind(reg)

	// No handler installed: must not panic.
	reg.emit("message_delivered", `{}`)

	if r.Installed(MessageDelivered) {
		t.Error("Installed(MessageDelivered) = true, want false")
	}
}

func TestClear(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()
	r.Bind(reg)

	calls := 0
	r.Set(Handlers{OnUserLeft: func(json.RawMessage) { calls++ }})
	r.Clear(UserLeft)
	reg.emit("user_left", `{}`)

	if calls != 0 {
		t.Errorf("calls = %d after Clear, want 0", calls)
	}
}

func TestPayloadPassedUnmodified(t *testing.T) {
	r := NewRegistry()
	var got json.RawMessage
	r.Set(Handlers{OnConversationUpdate: func(p json.RawMessage) { got = p }})

	raw := json.RawMessage(`{"conversation_id":"c9","extra":[1,2,3]}`)
	r.Dispatch(ConversationUpdate, raw)

	if string(got) != string(raw) {
		t.Errorf("payload = %s, want %s", got, raw)
	}
}

func TestTapRunsBeforeConsumer(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.Tap(UserStatus, func(json.RawMessage) { order = append(order, "tap") })
	r.Set(Handlers{OnUserStatus: func(json.RawMessage) { order = append(order, "consumer") }})

	r.Dispatch(UserStatus, json.RawMessage(`{}`))

	if len(order) != 2 || order[0] != "tap" || order[1] != "consumer" {
		t.Errorf("order = %v, want [tap consumer]", order)
	}
}

func TestTapAfterBindPanics(t *testing.T) {
	r := NewRegistry()
	r.Bind(newFakeRegistrar())

	defer func() {
		if recover() == nil {
			t.Error("Tap after Bind should panic")
		}
	}()
	r.Tap(Message, func(json.RawMessage) {})
}

func TestHandlerPanicPropagates(t *testing.T) {
	r := NewRegistry()
	reg := newFakeRegistrar()
	r.Bind(reg)
	r.Set(Handlers{OnMessage: func(json.RawMessage) { panic("consumer bug") }})

	defer func() {
		if got := recover(); got != "consumer bug" {
			t.Errorf("recover() = %v, want consumer bug", got)
		}
	}()
	reg.emit("new_message", `{}`)
	t.Error("emit should have panicked")
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("nope"); ok {
		t.Error("ParseKind(nope) should fail")
	}
	if Kind(99).String() != "unknown" {
		t.Error("out of range kind should stringify as unknown")
	}
}
