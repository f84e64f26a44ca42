package bus

import "time"

// Event kinds published on the bus.
const (
	KindStateChanged  = "connection.state_changed"
	KindAttemptFailed = "connection.attempt_failed"
	// KindInboundPrefix prefixes every inbound server event, e.g. "event.new_message".
	KindInboundPrefix = "event."
	KindSignalSent    = "signal.sent"
	KindJournalPruned = "journal.pruned"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Inbound returns the bus kind for a raw server event name.
func Inbound(name string) string {
	return KindInboundPrefix + name
}
