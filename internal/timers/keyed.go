package timers

import (
	"sync"
	"time"
)

type entry struct {
	id   uint64
	stop Stopper
}

// Keyed maps keys to pending timers with at most one live timer per key.
//
// Keyed has no lock of its own. The owner serializes every call with the
// Locker given to NewKeyed, and that same Locker is held while a fired
// callback runs, so a callback never observes a half-applied change and a
// timer cancelled under the lock never runs, even if the underlying clock
// already fired it.
type Keyed[K comparable] struct {
	clock   Clock
	mu      sync.Locker
	entries map[K]*entry
	seq     uint64
}

// NewKeyed creates an empty registry.
func NewKeyed[K comparable](c Clock, mu sync.Locker) *Keyed[K] {
	return &Keyed[K]{
		clock:   c,
		mu:      mu,
		entries: make(map[K]*entry),
	}
}

// Schedule arms fn to run after d, replacing any pending timer for key.
// The entry is removed before fn runs.
func (k *Keyed[K]) Schedule(key K, d time.Duration, fn func()) {
	if old, ok := k.entries[key]; ok {
		old.stop.Stop()
	}
	k.seq++
	id := k.seq
	e := &entry{id: id}
	k.entries[key] = e
	e.stop = k.clock.AfterFunc(d, func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		cur, ok := k.entries[key]
		if !ok || cur.id != id {
			return
		}
		delete(k.entries, key)
		fn()
	})
}

// Cancel stops the pending timer for key. It reports whether one was pending.
func (k *Keyed[K]) Cancel(key K) bool {
	e, ok := k.entries[key]
	if !ok {
		return false
	}
	e.stop.Stop()
	delete(k.entries, key)
	return true
}

// CancelAll stops every pending timer and returns how many were pending.
func (k *Keyed[K]) CancelAll() int {
	n := len(k.entries)
	for key, e := range k.entries {
		e.stop.Stop()
		delete(k.entries, key)
	}
	return n
}

// Pending reports whether key has a live timer.
func (k *Keyed[K]) Pending(key K) bool {
	_, ok := k.entries[key]
	return ok
}

// Len returns the number of live timers.
func (k *Keyed[K]) Len() int {
	return len(k.entries)
}

// Keys returns the keys with live timers, in no particular order.
func (k *Keyed[K]) Keys() []K {
	keys := make([]K, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	return keys
}
