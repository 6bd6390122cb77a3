package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/nilecart/internal/domain/cart"
)

var _ Store = (*Memory)(nil)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 7 * 24 * time.Hour

type entry struct {
	mu      sync.Mutex
	state   cart.State
	touched time.Time
	// evicted is set under mu once the entry has left the map.
	evicted bool
}

// Memory is an in-process Store. Sessions idle for longer than the TTL are
// evicted by Run.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory creates a Memory store. Non-positive ttl means DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// View returns the current cart of session id.
func (m *Memory) View(_ context.Context, id string) (cart.State, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return cart.State{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return cart.State{}, nil
	}
	return e.state, nil
}

// Update runs fn against the engine of session id.
func (m *Memory) Update(ctx context.Context, id string, fn func(*cart.Engine) error) (cart.State, error) {
	for {
		if err := ctx.Err(); err != nil {
			return cart.State{}, err
		}

		e := m.entry(id)
		e.mu.Lock()
		if e.evicted {
			// Lost a race with eviction; the next lookup creates a fresh entry.
			e.mu.Unlock()
			continue
		}

		engine := cart.Restore(e.state)
		if err := fn(engine); err != nil {
			e.mu.Unlock()
			return cart.State{}, err
		}
		e.state = engine.State()
		e.touched = m.now()
		state := e.state
		e.mu.Unlock()

		return state, nil
	}
}

// Delete drops session id.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.evicted = true
		e.mu.Unlock()
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Memory) entry(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		e = &entry{touched: m.now()}
		m.sessions[id] = e
	}
	return e
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were dropped. Sessions currently being updated are skipped.
func (m *Memory) Evict() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.touched.Before(cutoff) {
			e.evicted = true
			delete(m.sessions, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// Run evicts idle sessions every interval (one minute when unset) until
// ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration, lg *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				lg.Debug("Evicted idle sessions", zap.Int("count", n), zap.Int("remaining", m.Len()))
			}
		}
	}
}
