// Package flow implements the shipping assistant's dialogue engine.
//
// This file manages per-session conversation state. Turns within a session
// are serialized by a per-session lock; distinct sessions proceed
// independently. Snapshots are written through to the configured store and a
// janitor evicts sessions idle past the timeout.
package flow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/avocadolabs/photon/internal/models"
	"github.com/avocadolabs/photon/internal/store"
)

const (
	// DefaultIdleTimeout is how long a session may sit idle before eviction.
	DefaultIdleTimeout = 30 * time.Minute
	// defaultJanitorInterval is how often idle sessions are swept.
	defaultJanitorInterval = time.Minute
)

// SessionOpts holds configuration options for the session manager.
type SessionOpts struct {
	IdleTimeout     time.Duration
	JanitorInterval time.Duration
}

// SessionOption defines a configuration option for the session manager.
type SessionOption func(*SessionOpts)

// WithIdleTimeout overrides the session idle timeout.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(o *SessionOpts) {
		o.IdleTimeout = d
	}
}

// WithJanitorInterval overrides the eviction sweep interval.
func WithJanitorInterval(d time.Duration) SessionOption {
	return func(o *SessionOpts) {
		o.JanitorInterval = d
	}
}

type sessionEntry struct {
	mu         sync.Mutex
	state      *ConversationState
	createdAt  time.Time
	lastActive time.Time
}

// SessionManager keys conversation state by session ID.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	store       store.Store
	idleTimeout time.Duration
	interval    time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a session manager backed by st and starts its
// eviction janitor. Call Stop to shut the janitor down.
func NewSessionManager(st store.Store, opts ...SessionOption) *SessionManager {
	cfg := SessionOpts{IdleTimeout: DefaultIdleTimeout, JanitorInterval: defaultJanitorInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &SessionManager{
		sessions:    make(map[string]*sessionEntry),
		store:       st,
		idleTimeout: cfg.IdleTimeout,
		interval:    cfg.JanitorInterval,
		stop:        make(chan struct{}),
	}
	go m.janitor()
	slog.Debug("SessionManager created", "idle_timeout", cfg.IdleTimeout)
	return m
}

// Stop shuts down the eviction janitor.
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// entry returns the session entry for id, creating it if needed.
func (m *SessionManager) entry(id string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		e = &sessionEntry{createdAt: time.Now().UTC()}
		m.sessions[id] = e
	}
	return e
}

// hydrate loads the entry's state, pulling a persisted snapshot from the
// store on first touch. Caller must hold the entry lock.
func (m *SessionManager) hydrate(id string, e *sessionEntry) {
	if e.state != nil {
		return
	}
	e.state = NewConversationState()
	rec, err := m.store.GetSession(id)
	if err != nil {
		slog.Warn("SessionManager.hydrate: store read failed, starting fresh", "session_id", id, "error", err)
		return
	}
	if rec == nil {
		return
	}
	var restored ConversationState
	if err := json.Unmarshal([]byte(rec.StateJSON), &restored); err != nil {
		slog.Warn("SessionManager.hydrate: corrupt snapshot, starting fresh", "session_id", id, "error", err)
		return
	}
	e.state = &restored
	e.createdAt = rec.CreatedAt
}

// persist writes the entry's state through to the store. Persistence is best
// effort: a failed write is logged but does not fail the turn.
func (m *SessionManager) persist(id string, e *sessionEntry) {
	data, err := json.Marshal(e.state)
	if err != nil {
		slog.Error("SessionManager.persist: marshal failed", "session_id", id, "error", err)
		return
	}
	rec := models.SessionRecord{
		SessionID: id,
		StateJSON: string(data),
		CreatedAt: e.createdAt,
		UpdatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveSession(rec); err != nil {
		slog.Error("SessionManager.persist: store write failed", "session_id", id, "error", err)
	}
}

// WithTurn runs one turn against the session's state, serialized per session,
// and writes the resulting state through to the store.
func (m *SessionManager) WithTurn(sessionID string, fn func(*ConversationState) (*models.ChatResponse, error)) (*models.ChatResponse, error) {
	e := m.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	m.hydrate(sessionID, e)
	resp, err := fn(e.state)
	e.lastActive = time.Now().UTC()
	m.persist(sessionID, e)
	return resp, err
}

// Reset clears the session's conversation state.
func (m *SessionManager) Reset(sessionID string) {
	e := m.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	m.hydrate(sessionID, e)
	e.state.Reset()
	e.lastActive = time.Now().UTC()
	m.persist(sessionID, e)
}

// janitor periodically evicts idle sessions from memory and the store.
func (m *SessionManager) janitor() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle(time.Now().UTC().Add(-m.idleTimeout))
		}
	}
}

// evictIdle drops sessions whose last activity predates cutoff.
func (m *SessionManager) evictIdle(cutoff time.Time) {
	m.mu.Lock()
	var stale []string
	for id, e := range m.sessions {
		if !e.lastActive.IsZero() && e.lastActive.Before(cutoff) {
			stale = append(stale, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		if err := m.store.DeleteSession(id); err != nil {
			slog.Warn("SessionManager.evictIdle: store delete failed", "session_id", id, "error", err)
		}
	}
	if n, err := m.store.DeleteSessionsIdleSince(cutoff); err == nil && n > 0 {
		slog.Debug("SessionManager.evictIdle: evicted sessions", "in_memory", len(stale), "persisted", n)
	}
}

// HandleChat is the session-aware entry point: it resolves the session,
// serializes the turn, and delegates to the engine.
func (e *Engine) HandleChat(ctx context.Context, sessions *SessionManager, sessionID, message string) (*models.ChatResponse, error) {
	return sessions.WithTurn(sessionID, func(s *ConversationState) (*models.ChatResponse, error) {
		return e.HandleTurn(ctx, s, message)
	})
}
