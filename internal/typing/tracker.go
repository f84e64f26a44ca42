// Package typing debounces outbound typing indicators per conversation.
package typing

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/timers"
	"github.com/matheus3301/rtlink/internal/transport"
)

// DefaultTimeout is how long a conversation stays in the typing state
// without a further Start call.
const DefaultTimeout = 3 * time.Second

// Signal is the payload of the outbound typing event.
type Signal struct {
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// SendFunc emits one outbound event.
type SendFunc func(event string, payload any) error

// Tracker holds one auto-stop timer per conversation. A conversation with a
// pending timer is Typing, every other conversation is Idle.
//
// Signals are sent while the tracker lock is held, so the send function must
// not call back into the tracker.
type Tracker struct {
	mu      sync.Mutex
	pending *timers.Keyed[string]
	timeout time.Duration
	send    SendFunc
	log     *zap.Logger
	closed  bool
}

// NewTracker creates a tracker. A non-positive timeout means DefaultTimeout.
func NewTracker(c timers.Clock, timeout time.Duration, send SendFunc, log *zap.Logger) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		timeout: timeout,
		send:    send,
		log:     log,
	}
	t.pending = timers.NewKeyed[string](c, &t.mu)
	return t
}

// Start sends typing=true and (re)arms the auto-stop timer for convID.
// The signal is sent on every call; only the timer is debounced.
func (t *Tracker) Start(convID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.signal(convID, true)
	t.pending.Schedule(convID, t.timeout, func() {
		t.log.Debug("typing auto-stop", zap.String("conversation_id", convID))
		t.signal(convID, false)
	})
}

// Stop cancels the auto-stop timer and sends typing=false, even when the
// conversation was already Idle.
func (t *Tracker) Stop(convID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.pending.Cancel(convID)
	t.signal(convID, false)
}

// IsTyping reports whether convID is in the Typing state.
func (t *Tracker) IsTyping(convID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Pending(convID)
}

// Active returns the conversations currently in the Typing state, sorted.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	keys := t.pending.Keys()
	t.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// CancelAll drops every pending auto-stop timer without sending anything.
func (t *Tracker) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.CancelAll()
}

func (t *Tracker) signal(convID string, typing bool) {
	err := t.send(transport.EventTyping, Signal{ConversationID: convID, IsTyping: typing})
	if err != nil {
		t.log.Debug("typing signal not sent",
			zap.String("conversation_id", convID),
			zap.Bool("is_typing", typing),
			zap.Error(err),
		)
	}
}

// Close cancels every pending timer and turns Start and Stop into no-ops.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.pending.CancelAll()
}
