package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pointer.predict/internal/monitoring"
	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/timeutil"
)

var (
	// ErrSessionLimit is returned when creating a session would exceed
	// MaxSessions.
	ErrSessionLimit = errors.New("session limit reached")
	// ErrInvalidPointerID is returned for empty or malformed pointer IDs.
	ErrInvalidPointerID = errors.New("invalid pointer id")
)

const maxPointerIDLen = 64

// Session is one pointer stream and its engine. The engine is only
// touched through Do.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	engine *predict.Engine

	lastSeen time.Time // guarded by SessionManager.mu
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(e *predict.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// SessionInfo is the listing view of a session.
type SessionInfo struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Algorithm   predict.Algorithm `json:"algorithm"`
	SampleCount int               `json:"sample_count"`
	CreatedAt   time.Time         `json:"created_at"`
	LastSeen    time.Time         `json:"last_seen"`
}

// SessionOptions tunes a SessionManager.
type SessionOptions struct {
	IdleTimeout time.Duration // Sessions untouched this long are evicted
	MaxSessions int
	AutoStart   bool // New sessions start Active
	Clock       timeutil.Clock
}

// SessionManager owns one engine per pointer ID.
type SessionManager struct {
	mu       sync.Mutex
	cfg      predict.EngineConfig
	opts     SessionOptions
	sessions map[string]*Session
}

// NewSessionManager creates a manager whose new sessions use cfg.
func NewSessionManager(cfg predict.EngineConfig, opts SessionOptions) (*SessionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.MaxSessions < 1 {
		return nil, fmt.Errorf("max sessions must be at least 1, got %d", opts.MaxSessions)
	}
	return &SessionManager{
		cfg:      cfg,
		opts:     opts,
		sessions: make(map[string]*Session),
	}, nil
}

// Config returns the engine config used for new sessions.
func (m *SessionManager) Config() predict.EngineConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// SetConfig replaces the engine config for new sessions and applies it to
// every live session.
func (m *SessionManager) SetConfig(cfg predict.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		if err := s.Do(func(e *predict.Engine) error { return e.SetConfig(cfg) }); err != nil {
			return fmt.Errorf("pointer %s: %w", s.ID, err)
		}
	}
	return nil
}

// NewID returns a fresh pointer ID.
func NewID() string { return uuid.NewString() }

// ValidPointerID reports whether id can name a session.
func ValidPointerID(id string) bool {
	if id == "" || len(id) > maxPointerIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// GetOrCreate returns the session for id, creating it if needed, and
// marks it as seen.
func (m *SessionManager) GetOrCreate(id string) (*Session, error) {
	if !ValidPointerID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointerID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Clock.Now()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = now
		return s, nil
	}
	if len(m.sessions) >= m.opts.MaxSessions {
		return nil, fmt.Errorf("%w (%d)", ErrSessionLimit, m.opts.MaxSessions)
	}
	engine, err := predict.NewEngine(m.cfg)
	if err != nil {
		return nil, err
	}
	if m.opts.AutoStart {
		engine.Start()
	}
	s := &Session{ID: id, CreatedAt: now, engine: engine, lastSeen: now}
	m.sessions[id] = s
	monitoring.Debugf("api: pointer %s session created (%d live)", id, len(m.sessions))
	return s, nil
}

// Get returns the session for id and marks it as seen.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.opts.Clock.Now()
	}
	return s, ok
}

// Delete drops the session for id.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns every live session ordered by ID.
func (m *SessionManager) List() []SessionInfo {
	m.mu.Lock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, SessionInfo{ID: s.ID, CreatedAt: s.CreatedAt, LastSeen: s.lastSeen})
		live = append(live, s)
	}
	m.mu.Unlock()

	for i, s := range live {
		_ = s.Do(func(e *predict.Engine) error {
			infos[i].Active = e.IsActive()
			infos[i].Algorithm = e.Algorithm()
			infos[i].SampleCount = e.SampleCount()
			return nil
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// EvictIdle removes sessions not seen for IdleTimeout and returns how
// many were removed. A zero IdleTimeout disables eviction.
func (m *SessionManager) EvictIdle() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if m.opts.Clock.Since(s.lastSeen) >= m.opts.IdleTimeout {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		monitoring.Debugf("api: evicted %d idle pointer sessions (%d live)", evicted, len(m.sessions))
	}
	return evicted
}

// Run evicts idle sessions every half IdleTimeout until ctx is done.
func (m *SessionManager) Run(ctx context.Context) {
	if m.opts.IdleTimeout <= 0 {
		<-ctx.Done()
		return
	}
	ticker := m.opts.Clock.NewTicker(m.opts.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.EvictIdle()
		}
	}
}
