package session

import (
	"sync"
	"time"
)

// Manager holds one Controller per session key (web cookie, Telegram user).
type Manager struct {
	forecaster Forecaster
	observe    func(Outcome)

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager creates a Manager. observe may be nil.
func NewManager(f Forecaster, observe func(Outcome)) *Manager {
	return &Manager{forecaster: f, observe: observe, sessions: make(map[string]*Controller)}
}

// Get returns the controller for key, creating an Idle one on first use.
func (m *Manager) Get(key string) *Controller {
	m.mu.RLock()
	c, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[key]; ok {
		return c
	}
	c = newController(key, m.forecaster, m.observe)
	m.sessions[key] = c
	return c
}

// Lookup returns the controller for key without creating one.
func (m *Manager) Lookup(key string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[key]
	return c, ok
}

// Reset returns the session for key to Idle and forgets it, releasing its result.
// Unknown keys are a no-op. A Loading session is kept and ErrBusy returned.
func (m *Manager) Reset(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[key]
	if !ok {
		return nil
	}
	if err := c.Reset(); err != nil {
		return err
	}
	delete(m.sessions, key)
	return nil
}

// Sweep forgets every session that is not Loading and has not changed since cutoff.
// It returns the number of sessions removed.
func (m *Manager) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, c := range m.sessions {
		st := c.Snapshot()
		if st.Status == StatusLoading || st.UpdatedAt.After(cutoff) {
			continue
		}
		delete(m.sessions, key)
		removed++
	}
	return removed
}

// Len reports the number of known sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Wait blocks until every in-flight request has finished.
func (m *Manager) Wait() {
	m.mu.RLock()
	cs := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		cs = append(cs, c)
	}
	m.mu.RUnlock()
	for _, c := range cs {
		c.Wait()
	}
}
