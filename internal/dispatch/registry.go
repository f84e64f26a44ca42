// Package dispatch routes raw transport events to consumer callbacks.
//
// The registry installs exactly one listener per event kind on the transport.
// Each listener reads the current consumer callback through a mutable cell at
// delivery time, so consumers can swap callbacks freely without touching the
// transport and without leaking duplicate listeners.
package dispatch

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/matheus3301/rtlink/internal/transport"
)

// Handler consumes the raw payload of one event.
type Handler func(payload json.RawMessage)

// Handlers is a partial handler set. Nil fields are left untouched by Set.
type Handlers struct {
	OnMessage            Handler
	OnTyping             Handler
	OnUserStatus         Handler
	OnMessageStatus      Handler
	OnConversationUpdate Handler
	OnUserJoined         Handler
	OnUserLeft           Handler
	OnMessagesRead       Handler
	OnMessageReceived    Handler
	OnMessageDelivered   Handler
}

func (h Handlers) byKind() [numKinds]Handler {
	return [numKinds]Handler{
		Message:            h.OnMessage,
		Typing:             h.OnTyping,
		UserStatus:         h.OnUserStatus,
		MessageStatus:      h.OnMessageStatus,
		ConversationUpdate: h.OnConversationUpdate,
		UserJoined:         h.OnUserJoined,
		UserLeft:           h.OnUserLeft,
		MessagesRead:       h.OnMessagesRead,
		MessageReceived:    h.OnMessageReceived,
		MessageDelivered:   h.OnMessageDelivered,
	}
}

// Registrar is the part of a transport the registry binds to.
type Registrar interface {
	On(event string, l transport.Listener)
}

// Registry holds at most one consumer callback per kind, plus internal taps
// that observe events before the consumer does.
type Registry struct {
	cells [numKinds]atomic.Pointer[Handler]

	mu    sync.Mutex
	taps  [numKinds][]Handler
	bound bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set merges the non-nil callbacks of h into the registry. The change is
// visible to the next delivered event.
func (r *Registry) Set(h Handlers) {
	for k, fn := range h.byKind() {
		if fn == nil {
			continue
		}
		fn := fn
		r.cells[k].Store(&fn)
	}
}

// Clear removes the consumer callbacks for the given kinds.
func (r *Registry) Clear(kinds ...Kind) {
	for _, k := range kinds {
		if k >= 0 && k < numKinds {
			r.cells[k].Store(nil)
		}
	}
}

// Installed reports whether a consumer callback is set for k.
func (r *Registry) Installed(k Kind) bool {
	if k < 0 || k >= numKinds {
		return false
	}
	return r.cells[k].Load() != nil
}

// Tap adds an internal observer for k. Taps run before the consumer callback
// and must be added before Bind.
func (r *Registry) Tap(k Kind, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound {
		panic("dispatch: Tap after Bind")
	}
	r.taps[k] = append(r.taps[k], fn)
}

// Bind installs one listener per kind on t. It reports false if the registry
// was already bound, in which case nothing is installed.
func (r *Registry) Bind(t Registrar) bool {
	r.mu.Lock()
	if r.bound {
		r.mu.Unlock()
		return false
	}
	r.bound = true
	r.mu.Unlock()

	for _, k := range Kinds() {
		k := k
		t.On(k.String(), func(payload json.RawMessage) {
			r.Dispatch(k, payload)
		})
	}
	return true
}

// Dispatch delivers payload to the taps and the current consumer callback for
// k. A panic raised by a callback is not recovered here.
func (r *Registry) Dispatch(k Kind, payload json.RawMessage) {
	if k < 0 || k >= numKinds {
		return
	}
	for _, tap := range r.taps[k] {
		tap(payload)
	}
	if h := r.cells[k].Load(); h != nil {
		(*h)(payload)
	}
}
