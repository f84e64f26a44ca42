package dispatch

// Kind enumerates the inbound event kinds a consumer can subscribe to.
type Kind int

const (
	Message Kind = iota
	Typing
	UserStatus
	MessageStatus
	ConversationUpdate
	UserJoined
	UserLeft
	MessagesRead
	MessageReceived
	MessageDelivered

	numKinds
)

var wireNames = [numKinds]string{
	Message:            "new_message",
	Typing:             "user_typing",
	UserStatus:         "user_status",
	MessageStatus:      "message_status",
	ConversationUpdate: "conversation_updated",
	UserJoined:         "user_joined",
	UserLeft:           "user_left",
	MessagesRead:       "messages_read",
	MessageReceived:    "message_received",
	MessageDelivered:   "message_delivered",
}

// String returns the event name used on the wire.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return wireNames[k]
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind maps a wire event name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range wireNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}
