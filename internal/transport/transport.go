// Package transport defines the bidirectional connection used by the realtime
// manager and provides a websocket implementation of it.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("transport: not connected")

// Listener receives the raw payload of one inbound event.
type Listener func(payload json.RawMessage)

// Transport is a message-oriented connection to the realtime server.
type Transport interface {
	// Name identifies the transport in diagnostics.
	Name() string
	// Connect dials and authenticates. It blocks until the connection is
	// usable or fails.
	Connect(ctx context.Context) error
	// Disconnect closes the connection. It never fires the disconnect callback.
	Disconnect()
	// Send emits an outbound event. payload is encoded as JSON.
	Send(event string, payload any) error
	// On installs the listener for an inbound event name, replacing any previous one.
	On(event string, l Listener)
	// OnDisconnect installs the callback invoked when an established
	// connection drops without Disconnect being called.
	OnDisconnect(fn func(err error))
}

// Outbound event names understood by the server.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTyping            = "typing"
	EventMarkRead          = "mark_as_read"
)
