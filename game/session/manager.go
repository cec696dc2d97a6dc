package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// maxIDAttempts bounds the retries when a generated ID collides
const maxIDAttempts = 16

// Manager owns the in-memory cities. IDs are case-insensitive: every map
// key is the lower-cased ID while Session.ID keeps the caller's spelling.
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	mu          sync.RWMutex
}

// NewManager creates a memory-only session manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence creates a session manager that writes through
// to persistence. A nil persistence keeps everything in memory.
func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
	}
}

func key(id string) string { return strings.ToLower(id) }

// Create starts a new city from config. An empty id picks a random
// 4-character one.
func (m *Manager) Create(id string, config *engine.CityConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case id == "":
		id = newSessionID()
		for i := 0; m.sessions[key(id)] != nil && i < maxIDAttempts; i++ {
			id = newSessionID()
		}
	case !validSessionID(id):
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if m.sessions[key(id)] != nil {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key(id)] = session

	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			log.Printf("Warning: failed to persist session %s: %v", id, err)
		}
	}
	return session, nil
}

// Get returns a session, loading it from persistence when it is not in
// memory
func (m *Manager) Get(id string) (*service.Session, error) {
	if session, err := m.lookup(id); err == nil {
		return session, nil
	}
	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another caller may have loaded it meanwhile
	if existing := m.sessions[key(id)]; existing != nil {
		return existing, nil
	}
	m.sessions[key(id)] = loaded
	return loaded, nil
}

// GetOrCreate returns the session or creates it from config
func (m *Manager) GetOrCreate(id string, config *engine.CityConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config)
	}
	return session, err
}

// List returns the in-memory sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.sessions[key(id)]
	delete(m.sessions, key(id))

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a session without touching persistence
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

// UpdateLastAccessed marks a session as used now
func (m *Manager) UpdateLastAccessed(id string) error {
	session, err := m.lookup(id)
	if err != nil {
		return err
	}
	session.Touch()
	return nil
}

// Save writes one session to persistence; a no-op without persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}
	session, err := m.lookup(id)
	if err != nil {
		return err
	}
	return m.persistence.Save(session)
}

func (m *Manager) lookup(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.sessions[key(id)]; ok {
		return session, nil
	}
	return nil, ErrSessionNotFound
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many were evicted. Persisted copies are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, session := range m.sessions {
		if session.LastAccess().Before(cutoff) {
			delete(m.sessions, k)
			removed++
		}
	}
	return removed
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// newSessionID returns 4 random hex characters
func newSessionID() string {
	b := make([]byte, 2)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// validSessionID accepts up to 64 letters, digits, '-' and '_'
func validSessionID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// LoadPersistedSessions brings every stored session into memory. Sessions
// that fail to load are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, ok := m.sessions[key(id)]; ok {
			continue
		}
		session, err := m.persistence.Load(id)
		if err != nil {
			log.Printf("Warning: failed to load persisted session %s: %v", id, err)
			continue
		}
		m.sessions[key(id)] = session
		loaded++
	}

	if loaded > 0 {
		log.Printf("Loaded %d persisted cities from storage", loaded)
	}
	return nil
}

// SaveAllSessions writes every in-memory session to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, session := range m.List() {
		if err := m.persistence.Save(session); err != nil {
			log.Printf("Warning: failed to save session %s: %v", session.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
