package store

// Event categories recorded in the journal.
const (
	CategoryInbound = "inbound"
	CategorySignal  = "signal"
	CategoryAttempt = "attempt"
)

// Entry is one journaled event.
type Entry struct {
	ID             int64
	EntryID        string
	Category       string
	Name           string
	ConversationID string
	Payload        string
	CreatedAt      int64 // unix millis
}

// Transition is one recorded connection state change.
type Transition struct {
	ID           int64
	From         string
	To           string
	AttemptCount int
	LastError    string
	CreatedAt    int64 // unix millis
}

// Membership is a conversation the profile has joined.
type Membership struct {
	ConversationID string
	JoinedAt       int64 // unix millis
}
