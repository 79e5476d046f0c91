// Package store provides session persistence backends for Photon.
//
// It includes an in-memory store plus SQLite and PostgreSQL backends selected
// by DSN autodetection. Session records live only for the session's lifetime;
// eviction deletes them.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avocadolabs/photon/internal/models"
)

// Store is the session persistence interface shared by all backends.
type Store interface {
	// SaveSession inserts or updates the record for its session ID.
	SaveSession(rec models.SessionRecord) error
	// GetSession returns the record for sessionID, or nil when absent.
	GetSession(sessionID string) (*models.SessionRecord, error)
	// DeleteSession removes the record for sessionID. Missing records are not an error.
	DeleteSession(sessionID string) error
	// DeleteSessionsIdleSince removes every record last updated before cutoff
	// and returns how many were removed.
	DeleteSessionsIdleSince(cutoff time.Time) (int, error)
	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	PostgresDSN string
	SQLiteDSN   string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.PostgresDSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.SQLiteDSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite".
// PostgreSQL DSNs use the postgres:// URL scheme or key=value form with host=;
// anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore keeps session records in a map. It is the default backend
// when no DSN is configured, and the natural fit for single-process runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionRecord
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.SessionRecord)}
}

// SaveSession inserts or updates the record for its session ID.
func (s *InMemoryStore) SaveSession(rec models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[rec.SessionID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	s.sessions[rec.SessionID] = rec
	return nil
}

// GetSession returns the record for sessionID, or nil when absent.
func (s *InMemoryStore) GetSession(sessionID string) (*models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// DeleteSession removes the record for sessionID.
func (s *InMemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// DeleteSessionsIdleSince removes records last updated before cutoff.
func (s *InMemoryStore) DeleteSessionsIdleSince(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []string
	for id, rec := range s.sessions {
		if rec.UpdatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	for _, id := range stale {
		delete(s.sessions, id)
	}
	return len(stale), nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
