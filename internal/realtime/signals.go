package realtime

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/transport"
)

// ReadAll is the message ID sent when a whole conversation is marked read.
const ReadAll = "all"

// ConversationRef is the payload of join and leave requests.
type ConversationRef struct {
	ConversationID string `json:"conversation_id"`
}

// ReadReceipt is the payload of a mark-as-read signal.
type ReadReceipt struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// AttemptFailure is published on the bus after every failed connection attempt.
type AttemptFailure struct {
	Attempt int
	Error   string
	Delay   time.Duration // zero when Final
	Final   bool
}

// SignalSent is published on the bus for every outbound event the transport accepted.
type SignalSent struct {
	Event string
}

// JoinConversation asks the server to subscribe to a conversation. The ID is
// remembered and joined again after every reconnect until LeaveConversation.
func (m *Manager) JoinConversation(id string) {
	if id == "" {
		m.log.Warn("join ignored: empty conversation id")
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.joined[id] = struct{}{}
	m.mu.Unlock()

	_ = m.send(transport.EventJoinConversation, ConversationRef{ConversationID: id})
}

// LeaveConversation asks the server to unsubscribe from a conversation.
func (m *Manager) LeaveConversation(id string) {
	if id == "" {
		m.log.Warn("leave ignored: empty conversation id")
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	delete(m.joined, id)
	m.mu.Unlock()

	_ = m.send(transport.EventLeaveConversation, ConversationRef{ConversationID: id})
}

// StartTyping sends typing=true and re-arms the auto-stop timer.
func (m *Manager) StartTyping(conversationID string) {
	m.typing.Start(conversationID)
}

// StopTyping cancels the auto-stop timer and sends typing=false.
func (m *Manager) StopTyping(conversationID string) {
	m.typing.Stop(conversationID)
}

// MarkAsRead sends one receipt per message ID, or a single ReadAll receipt
// when none are given.
func (m *Manager) MarkAsRead(conversationID string, messageIDs ...string) {
	if len(messageIDs) == 0 {
		messageIDs = []string{ReadAll}
	}
	for _, id := range messageIDs {
		_ = m.send(transport.EventMarkRead, ReadReceipt{ConversationID: conversationID, MessageID: id})
	}
}

// send is the only path to the transport for outbound signals. It never
// touches the manager lock.
func (m *Manager) send(event string, payload any) error {
	if err := m.tr.Send(event, payload); err != nil {
		m.log.Debug("signal not sent", zap.String("event", event), zap.Error(err))
		return err
	}
	m.bus.Publish(bus.Event{
		Kind:      bus.KindSignalSent,
		Timestamp: m.clock.Now(),
		Payload:   SignalSent{Event: event},
	})
	return nil
}

func (m *Manager) joinedLocked() []string {
	out := make([]string, 0, len(m.joined))
	for id := range m.joined {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
