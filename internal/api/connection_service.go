package api

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/rtlink/internal/presence"
	"github.com/matheus3301/rtlink/internal/realtime"
	connstatus "github.com/matheus3301/rtlink/internal/status"
	"github.com/matheus3301/rtlink/internal/store"
)

// Connection is the part of the realtime manager the control plane drives.
type Connection interface {
	State() connstatus.Snapshot
	Connect()
	Disconnect()
	Reconnect()
	JoinConversation(id string)
	LeaveConversation(id string)
	StartTyping(conversationID string)
	StopTyping(conversationID string)
	MarkAsRead(conversationID string, messageIDs ...string)
	IsUserOnline(peer presence.PeerID) bool
	ConnectionStats() realtime.Stats
}

// Principal is the identity store as seen by Login and Logout.
type Principal interface {
	Current() (string, bool)
	Set(userID string)
	Clear()
}

// Journal is the persistence the control plane reads and updates.
type Journal interface {
	ListEvents(category string, beforeID int64, limit int) ([]store.Entry, error)
	CountEvents() (map[string]int, error)
	AddMembership(conversationID string) error
	RemoveMembership(conversationID string) error
	ClearMemberships() error
}

const maxEventsPage = 500

// ConnectionService implements ConnectionServer on top of the realtime manager.
type ConnectionService struct {
	profile   string
	conn      Connection
	principal Principal
	journal   Journal
	logger    *zap.Logger
	startedAt time.Time
}

// NewConnectionService creates the control-plane service. journal may be nil,
// in which case memberships are not persisted and ListEvents is unavailable.
func NewConnectionService(profile string, conn Connection, principal Principal, journal Journal, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{
		profile:   profile,
		conn:      conn,
		principal: principal,
		journal:   journal,
		logger:    logger,
		startedAt: time.Now(),
	}
}

func (s *ConnectionService) GetStatus(_ context.Context, _ *Empty) (*StatusResponse, error) {
	snap := s.conn.State()
	resp := &StatusResponse{
		Profile:      s.profile,
		State:        string(snap.State),
		IsConnected:  snap.IsConnected,
		IsConnecting: snap.IsConnecting,
		LastError:    snap.LastError,
		AttemptCount: snap.AttemptCount,
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
	}
	if !snap.LastConnectedAt.IsZero() {
		resp.LastConnectedAtMs = snap.LastConnectedAt.UnixMilli()
	}
	if id, ok := s.principal.Current(); ok {
		resp.UserID = id
	}
	return resp, nil
}

func (s *ConnectionService) GetStats(_ context.Context, _ *Empty) (*StatsResponse, error) {
	st := s.conn.ConnectionStats()
	resp := &StatsResponse{
		Connected:    st.Connected,
		State:        string(st.State),
		Transport:    st.Transport,
		AttemptCount: st.AttemptCount,
		LastError:    st.LastError,
		OnlinePeers:  make([]string, 0, len(st.OnlinePeers)),
		Joined:       nonNil(st.Joined),
		Typing:       nonNil(st.Typing),
	}
	if !st.LastConnectedAt.IsZero() {
		resp.LastConnectedAtMs = st.LastConnectedAt.UnixMilli()
	}
	for _, p := range st.OnlinePeers {
		resp.OnlinePeers = append(resp.OnlinePeers, string(p))
	}
	if s.journal != nil {
		counts, err := s.journal.CountEvents()
		if err != nil {
			s.logger.Warn("count journal events", zap.Error(err))
		} else {
			resp.JournalCounts = counts
		}
	}
	return resp, nil
}

func (s *ConnectionService) Connect(_ context.Context, _ *Empty) (*Ack, error) {
	if _, ok := s.principal.Current(); !ok {
		return nil, status.Error(codes.FailedPrecondition, "not logged in")
	}
	s.conn.Connect()
	return &Ack{OK: true, Message: string(s.conn.State().State)}, nil
}

func (s *ConnectionService) Disconnect(_ context.Context, _ *Empty) (*Ack, error) {
	s.conn.Disconnect()
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) Reconnect(_ context.Context, _ *Empty) (*Ack, error) {
	if _, ok := s.principal.Current(); !ok {
		return nil, status.Error(codes.FailedPrecondition, "not logged in")
	}
	s.conn.Reconnect()
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) Join(_ context.Context, req *ConversationRequest) (*Ack, error) {
	id, err := conversationID(req.ConversationID)
	if err != nil {
		return nil, err
	}
	s.conn.JoinConversation(id)
	if s.journal != nil {
		if err := s.journal.AddMembership(id); err != nil {
			s.logger.Warn("persist membership", zap.String("conversation", id), zap.Error(err))
		}
	}
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) Leave(_ context.Context, req *ConversationRequest) (*Ack, error) {
	id, err := conversationID(req.ConversationID)
	if err != nil {
		return nil, err
	}
	s.conn.LeaveConversation(id)
	if s.journal != nil {
		if err := s.journal.RemoveMembership(id); err != nil {
			s.logger.Warn("remove membership", zap.String("conversation", id), zap.Error(err))
		}
	}
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) StartTyping(_ context.Context, req *ConversationRequest) (*Ack, error) {
	id, err := conversationID(req.ConversationID)
	if err != nil {
		return nil, err
	}
	s.conn.StartTyping(id)
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) StopTyping(_ context.Context, req *ConversationRequest) (*Ack, error) {
	id, err := conversationID(req.ConversationID)
	if err != nil {
		return nil, err
	}
	s.conn.StopTyping(id)
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) MarkRead(_ context.Context, req *MarkReadRequest) (*Ack, error) {
	id, err := conversationID(req.ConversationID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(req.MessageIDs))
	for _, m := range req.MessageIDs {
		if m = strings.TrimSpace(m); m != "" {
			ids = append(ids, m)
		}
	}
	s.conn.MarkAsRead(id, ids...)
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) IsOnline(_ context.Context, req *IsOnlineRequest) (*IsOnlineResponse, error) {
	user := strings.TrimSpace(req.UserID)
	if user == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	return &IsOnlineResponse{UserID: user, Online: s.conn.IsUserOnline(presence.PeerID(user))}, nil
}

func (s *ConnectionService) Login(_ context.Context, req *LoginRequest) (*Ack, error) {
	user := strings.TrimSpace(req.UserID)
	if user == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if prev, ok := s.principal.Current(); ok && prev != user && s.journal != nil {
		if err := s.journal.ClearMemberships(); err != nil {
			s.logger.Warn("clear memberships", zap.Error(err))
		}
	}
	s.principal.Set(user)
	s.logger.Info("principal set", zap.String("user_id", user))
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) Logout(_ context.Context, _ *Empty) (*Ack, error) {
	s.principal.Clear()
	if s.journal != nil {
		if err := s.journal.ClearMemberships(); err != nil {
			s.logger.Warn("clear memberships", zap.Error(err))
		}
	}
	s.logger.Info("principal cleared")
	return &Ack{OK: true}, nil
}

func (s *ConnectionService) ListEvents(_ context.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
	if s.journal == nil {
		return nil, status.Error(codes.Unavailable, "journal is disabled")
	}
	switch req.Category {
	case "", store.CategoryInbound, store.CategorySignal, store.CategoryAttempt:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown category %q", req.Category)
	}
	limit := req.Limit
	if limit > maxEventsPage {
		limit = maxEventsPage
	}
	entries, err := s.journal.ListEvents(req.Category, req.BeforeID, limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list events: %v", err)
	}
	resp := &ListEventsResponse{Events: make([]EventEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Events = append(resp.Events, EventEntry{
			ID:             e.ID,
			Category:       e.Category,
			Name:           e.Name,
			ConversationID: e.ConversationID,
			Payload:        e.Payload,
			CreatedAtMs:    e.CreatedAt,
		})
	}
	return resp, nil
}

func conversationID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "conversation_id is required")
	}
	return id, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
