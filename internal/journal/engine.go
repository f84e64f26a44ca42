// Package journal records connection activity from the bus into the store.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/realtime"
	"github.com/matheus3301/rtlink/internal/status"
	"github.com/matheus3301/rtlink/internal/store"
)

// Engine persists inbound events, outbound signals, failed attempts and
// state transitions. It subscribes to the whole bus and ignores kinds it
// does not know.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new journal engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger.Named("journal"),
	}
}

// Start subscribes to the bus and records events until ctx ends or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe("", 512)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the subscriber to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	var err error
	switch {
	case evt.Kind == bus.KindStateChanged:
		change, ok := evt.Payload.(status.StatusChange)
		if !ok {
			return
		}
		err = e.RecordTransition(change, evt.Timestamp)
	case evt.Kind == bus.KindAttemptFailed:
		failure, ok := evt.Payload.(realtime.AttemptFailure)
		if !ok {
			return
		}
		err = e.RecordAttempt(failure, evt.Timestamp)
	case evt.Kind == bus.KindSignalSent:
		sig, ok := evt.Payload.(realtime.SignalSent)
		if !ok {
			return
		}
		err = e.db.AppendEvent(&store.Entry{
			Category:  store.CategorySignal,
			Name:      sig.Event,
			CreatedAt: evt.Timestamp.UnixMilli(),
		})
	case strings.HasPrefix(evt.Kind, bus.KindInboundPrefix):
		payload, ok := evt.Payload.(json.RawMessage)
		if !ok {
			return
		}
		err = e.RecordInbound(strings.TrimPrefix(evt.Kind, bus.KindInboundPrefix), payload, evt.Timestamp)
	default:
		return
	}
	if err != nil {
		e.logger.Error("failed to journal event", zap.String("kind", evt.Kind), zap.Error(err))
	}
}

// RecordInbound stores an inbound server event with its raw payload.
func (e *Engine) RecordInbound(name string, payload json.RawMessage, at time.Time) error {
	var ref struct {
		ConversationID json.RawMessage `json:"conversation_id"`
	}
	_ = json.Unmarshal(payload, &ref)

	if err := e.db.AppendEvent(&store.Entry{
		Category:       store.CategoryInbound,
		Name:           name,
		ConversationID: rawID(ref.ConversationID),
		Payload:        string(payload),
		CreatedAt:      at.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("append inbound %s: %w", name, err)
	}
	return nil
}

// RecordAttempt stores a failed connection attempt.
func (e *Engine) RecordAttempt(f realtime.AttemptFailure, at time.Time) error {
	detail, err := json.Marshal(f)
	if err != nil {
		return err
	}
	name := "retry"
	if f.Final {
		name = "exhausted"
	}
	if err := e.db.AppendEvent(&store.Entry{
		Category:  store.CategoryAttempt,
		Name:      name,
		Payload:   string(detail),
		CreatedAt: at.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// RecordTransition stores a state change.
func (e *Engine) RecordTransition(c status.StatusChange, at time.Time) error {
	if err := e.db.AppendTransition(&store.Transition{
		From:         string(c.From),
		To:           string(c.To),
		AttemptCount: c.Snapshot.AttemptCount,
		LastError:    c.Snapshot.LastError,
		CreatedAt:    at.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// rawID renders a JSON string or number ID as text.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
