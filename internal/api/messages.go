package api

// Empty is the request of calls that take no arguments.
type Empty struct{}

// Ack answers commands.
type Ack struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// StatusResponse mirrors the connection state snapshot.
type StatusResponse struct {
	Profile           string `json:"profile"`
	UserID            string `json:"user_id,omitempty"`
	State             string `json:"state"`
	IsConnected       bool   `json:"is_connected"`
	IsConnecting      bool   `json:"is_connecting"`
	LastError         string `json:"last_error,omitempty"`
	AttemptCount      int    `json:"attempt_count"`
	LastConnectedAtMs int64  `json:"last_connected_at_ms,omitempty"`
	UptimeMs          int64  `json:"uptime_ms"`
}

// StatsResponse is the diagnostic snapshot plus journal counters.
type StatsResponse struct {
	Connected         bool           `json:"connected"`
	State             string         `json:"state"`
	Transport         string         `json:"transport"`
	AttemptCount      int            `json:"attempt_count"`
	LastError         string         `json:"last_error,omitempty"`
	LastConnectedAtMs int64          `json:"last_connected_at_ms,omitempty"`
	OnlinePeers       []string       `json:"online_peers"`
	Joined            []string       `json:"joined"`
	Typing            []string       `json:"typing"`
	JournalCounts     map[string]int `json:"journal_counts,omitempty"`
}

// ConversationRequest names a conversation.
type ConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

// MarkReadRequest marks messages read. No IDs means the whole conversation.
type MarkReadRequest struct {
	ConversationID string   `json:"conversation_id"`
	MessageIDs     []string `json:"message_ids,omitempty"`
}

// IsOnlineRequest asks about one peer.
type IsOnlineRequest struct {
	UserID string `json:"user_id"`
}

// IsOnlineResponse answers IsOnline from the local presence cache.
type IsOnlineResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// LoginRequest sets the authenticated principal.
type LoginRequest struct {
	UserID string `json:"user_id"`
}

// ListEventsRequest pages through the journal, newest first.
type ListEventsRequest struct {
	Category string `json:"category,omitempty"`
	BeforeID int64  `json:"before_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// EventEntry is one journal entry.
type EventEntry struct {
	ID             int64  `json:"id"`
	Category       string `json:"category"`
	Name           string `json:"name"`
	ConversationID string `json:"conversation_id,omitempty"`
	Payload        string `json:"payload,omitempty"`
	CreatedAtMs    int64  `json:"created_at_ms"`
}

// ListEventsResponse holds one page of journal entries.
type ListEventsResponse struct {
	Events []EventEntry `json:"events"`
}
