// Package presence keeps a local, best-effort view of which peers are online.
package presence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
)

// StatusOnline is the only status value that marks a peer online.
const StatusOnline = "online"

// PeerID identifies a peer. The server sends it either as a JSON number or a
// string, so both decode to the same textual form.
type PeerID string

// UnmarshalJSON accepts `5` and `"5"` alike.
func (p *PeerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PeerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("presence: user_id is neither string nor number: %w", err)
	}
	*p = PeerID(n.String())
	return nil
}

// FromInt converts a numeric peer identifier.
func FromInt(id int64) PeerID {
	return PeerID(strconv.FormatInt(id, 10))
}

// StatusEvent is the typed subset of a user-status payload.
type StatusEvent struct {
	UserID PeerID `json:"user_id"`
	Status string `json:"status"`
}

// Peers is the set of peers believed online. It is never authoritative.
type Peers struct {
	mu     sync.RWMutex
	online map[PeerID]struct{}
}

// NewPeers creates an empty set.
func NewPeers() *Peers {
	return &Peers{online: make(map[PeerID]struct{})}
}

// Set marks id online or offline according to status.
func (p *Peers) Set(id PeerID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == StatusOnline {
		p.online[id] = struct{}{}
		return
	}
	delete(p.online, id)
}

// Apply decodes a raw user-status payload and updates the set.
func (p *Peers) Apply(payload json.RawMessage) (StatusEvent, error) {
	var ev StatusEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("presence: decode user status: %w", err)
	}
	if ev.UserID == "" {
		return ev, fmt.Errorf("presence: user status without user_id")
	}
	p.Set(ev.UserID, ev.Status)
	return ev, nil
}

// IsOnline reports whether id is in the set.
func (p *Peers) IsOnline(id PeerID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[id]
	return ok
}

// List returns a sorted copy of the online peer IDs.
func (p *Peers) List() []PeerID {
	p.mu.RLock()
	out := make([]PeerID, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	p.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Len returns the number of peers believed online.
func (p *Peers) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}

// Reset forgets every peer.
func (p *Peers) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.online)
}
