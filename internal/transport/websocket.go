package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// ErrSendQueueFull is returned by Send when the outbound queue is saturated.
var ErrSendQueueFull = errors.New("transport: send queue full")

var wire = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultPingInterval     = 25 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSendBuffer       = 64

	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// Envelope is the frame exchanged with the server in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebSocketConfig configures a WebSocket transport.
type WebSocketConfig struct {
	URL              string
	UserID           string
	Token            string
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
	SendBuffer       int

	// Principal, when set, supplies the user ID at dial time and takes
	// precedence over UserID.
	Principal func() string
}

// WebSocket is a Transport over gorilla/websocket with a JSON envelope.
type WebSocket struct {
	cfg    WebSocketConfig
	dialer *websocket.Dialer
	log    *zap.Logger

	mu           sync.Mutex
	listeners    map[string]Listener
	onDisconnect func(err error)
	conn         *wsConn
}

type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsConn) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// NewWebSocket creates a disconnected WebSocket transport.
func NewWebSocket(cfg WebSocketConfig, log *zap.Logger) *WebSocket {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocket{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		log:       log.Named("transport"),
		listeners: make(map[string]Listener),
	}
}

// Name implements Transport.
func (w *WebSocket) Name() string { return "websocket" }

// ConnectionID returns the ID of the open connection, or "" when closed.
func (w *WebSocket) ConnectionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ""
	}
	return w.conn.id
}

// On implements Transport.
func (w *WebSocket) On(event string, l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners[event] = l
}

// OnDisconnect implements Transport.
func (w *WebSocket) OnDisconnect(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDisconnect = fn
}

// Connect dials the server. Any previous connection is closed first without
// firing the disconnect callback.
func (w *WebSocket) Connect(ctx context.Context) error {
	target, err := w.dialURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	if w.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+w.cfg.Token)
	}

	ws, resp, err := w.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", w.cfg.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", w.cfg.URL, err)
	}

	c := &wsConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, w.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	w.mu.Lock()
	old := w.conn
	w.conn = c
	w.mu.Unlock()
	if old != nil {
		old.shutdown()
	}

	w.log.Info("websocket connected", zap.String("conn_id", c.id), zap.String("url", w.cfg.URL))
	go w.writePump(c)
	go w.readPump(c)
	return nil
}

// Disconnect closes the open connection, if any. It never fires the
// disconnect callback.
func (w *WebSocket) Disconnect() {
	w.mu.Lock()
	c := w.conn
	w.conn = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	w.log.Info("websocket disconnecting", zap.String("conn_id", c.id))
	c.shutdown()
}

// Send queues an outbound event. It does not block on the network.
func (w *WebSocket) Send(event string, payload any) error {
	data, err := wire.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	frame, err := wire.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event, err)
	}

	w.mu.Lock()
	c := w.conn
	w.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrNotConnected
	default:
		return ErrSendQueueFull
	}
}

func (w *WebSocket) dialURL() (string, error) {
	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	userID := w.cfg.UserID
	if w.cfg.Principal != nil {
		if id := w.cfg.Principal(); id != "" {
			userID = id
		}
	}
	if userID != "" {
		q := u.Query()
		q.Set("user_id", userID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (w *WebSocket) pongWait() time.Duration {
	return 2 * w.cfg.PingInterval
}

func (w *WebSocket) readPump(c *wsConn) {
	defer c.shutdown()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(w.pongWait()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(w.pongWait()))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			w.dropped(c, err)
			return
		}

		var env Envelope
		if err := wire.Unmarshal(data, &env); err != nil {
			w.log.Warn("malformed frame", zap.String("conn_id", c.id), zap.Error(err))
			continue
		}

		w.mu.Lock()
		l := w.listeners[env.Event]
		w.mu.Unlock()
		if l == nil {
			w.log.Debug("no listener for event", zap.String("event", env.Event))
			continue
		}
		w.deliver(c, env, l)
	}
}

func (w *WebSocket) deliver(c *wsConn, env Envelope, l Listener) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("event listener panicked",
				zap.String("conn_id", c.id),
				zap.String("event", env.Event),
				zap.Any("panic", r),
			)
		}
	}()
	l(env.Data)
}

// dropped reports a read failure. Failures after Disconnect or a newer
// Connect are expected and stay silent.
func (w *WebSocket) dropped(c *wsConn, err error) {
	w.mu.Lock()
	current := w.conn == c
	if current {
		w.conn = nil
	}
	cb := w.onDisconnect
	w.mu.Unlock()

	if !current {
		return
	}

	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		w.log.Info("server closed connection", zap.String("conn_id", c.id), zap.Error(err))
	case isTimeout(err):
		w.log.Warn("connection timed out", zap.String("conn_id", c.id))
	default:
		w.log.Warn("connection lost", zap.String("conn_id", c.id), zap.Error(err))
	}

	if cb != nil {
		cb(err)
	}
}

func (w *WebSocket) writePump(c *wsConn) {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				w.log.Warn("write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				w.log.Warn("ping failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
