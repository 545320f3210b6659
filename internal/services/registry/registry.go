// Package registry tracks connected subscribers and their symbol sets.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrDuplicateID is returned when a session id is registered twice.
// Connecting the same id again is a logic error, not an expected race.
var ErrDuplicateID = errors.New("session id already registered")

// Transport delivers outbound messages to one connected client. The
// registry only borrows it: closing is the broadcast scheduler's job,
// and Close must tolerate being called more than once.
type Transport interface {
	SendJSON(v any) error
	Close() error
}

// Record is a point-in-time copy of one subscriber's state.
type Record struct {
	ID        string
	Symbols   []string
	Transport Transport
}

type entry struct {
	symbols   map[string]struct{}
	lastSeen  time.Time
	transport Transport
}

// Registry is the in-memory subscriber bookkeeping, guarded by a single
// mutex. State is small and operations are brief, so one lock for the
// whole map beats per-field locking.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a subscriber with an empty symbol set.
func (r *Registry) Register(id string, t Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return errors.Wrap(ErrDuplicateID, id)
	}
	r.entries[id] = &entry{
		symbols:   make(map[string]struct{}),
		lastSeen:  time.Now(),
		transport: t,
	}
	return nil
}

// Subscribe unions symbols into the subscriber's set and refreshes its
// activity timestamp. Unknown ids are a benign no-op (the session may
// have been evicted concurrently); nil is returned in that case.
// Otherwise the full resulting set is returned, sorted.
func (r *Registry) Subscribe(id string, symbols []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	for _, s := range symbols {
		e.symbols[s] = struct{}{}
	}
	e.lastSeen = time.Now()
	return symbolList(e.symbols)
}

// Unsubscribe removes symbols from the subscriber's set. Unknown ids
// are ignored.
func (r *Registry) Unsubscribe(id string, symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	for _, s := range symbols {
		delete(e.symbols, s)
	}
	e.lastSeen = time.Now()
}

// Touch refreshes the subscriber's activity timestamp (heartbeat).
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = time.Now()
	}
}

// Remove deletes a subscriber unconditionally. Removing an unknown id
// is a no-op, so disconnect handling stays idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of connected subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns a copy of the current state. Mutating the result
// does not affect the registry.
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, Record{ID: id, Symbols: symbolList(e.symbols), Transport: e.transport})
	}
	return out
}

// EvictStale removes every subscriber idle longer than timeout and
// returns the removed records. Transports are left open: closing them
// is the caller's responsibility, keeping transport lifecycle separate
// from bookkeeping.
func (r *Registry) EvictStale(now time.Time, timeout time.Duration) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > timeout {
			out = append(out, Record{ID: id, Symbols: symbolList(e.symbols), Transport: e.transport})
			delete(r.entries, id)
		}
	}
	return out
}

// Clear drops every subscriber and returns the removed records.
func (r *Registry) Clear() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, Record{ID: id, Symbols: symbolList(e.symbols), Transport: e.transport})
		delete(r.entries, id)
	}
	return out
}

func symbolList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
