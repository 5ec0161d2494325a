package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DMarby/postcard-poodle/internal/hmac"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNotFound is returned for unknown, expired or forged session ids
var ErrNotFound = errors.New("session not found")

// ErrStoreFull is returned when no more sessions can be created
var ErrStoreFull = errors.New("too many sessions")

const minSweepInterval = time.Second

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sessions_active",
	Help: "Number of sessions held in memory.",
})

// Store keeps sessions in memory, addressed by signed ids, and expires idle ones
type Store struct {
	HMAC     *hmac.HMAC
	TTL      time.Duration
	Capacity int // zero means unbounded
	Log      *logger.Logger

	mutex    sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store
func NewStore(log *logger.Logger, h *hmac.HMAC, ttl time.Duration, capacity int) *Store {
	return &Store{
		HMAC:     h,
		TTL:      ttl,
		Capacity: capacity,
		Log:      log,
		sessions: make(map[string]*Session),
	}
}

// Run removes idle sessions periodically until ctx is done
func (s *Store) Run(ctx context.Context) {
	interval := s.TTL / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(time.Now()); removed > 0 {
				s.Log.Debugw("expired idle sessions", "count", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Create creates a new session and returns its id
func (s *Store) Create() (string, *Session, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("error generating session id: %w", err)
	}

	key := base64.RawURLEncoding.EncodeToString(raw)
	id, err := s.HMAC.Sign(key)
	if err != nil {
		return "", nil, fmt.Errorf("error signing session id: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.Capacity > 0 && len(s.sessions) >= s.Capacity {
		return "", nil, ErrStoreFull
	}

	session := New()
	s.sessions[key] = session
	activeSessions.Set(float64(len(s.sessions)))

	return id, session, nil
}

// Get returns the session with the given id
func (s *Store) Get(id string) (*Session, error) {
	key, ok := s.HMAC.Open(id)
	if !ok {
		return nil, ErrNotFound
	}

	s.mutex.RLock()
	session, exists := s.sessions[key]
	s.mutex.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	session.touch()
	return session, nil
}

// Delete removes the session with the given id
func (s *Store) Delete(id string) error {
	key, ok := s.HMAC.Open(id)
	if !ok {
		return ErrNotFound
	}

	s.mutex.Lock()
	session, exists := s.sessions[key]
	delete(s.sessions, key)
	activeSessions.Set(float64(len(s.sessions)))
	s.mutex.Unlock()

	if !exists {
		return ErrNotFound
	}

	session.Close()
	return nil
}

// Len returns the number of sessions
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many were removed
func (s *Store) Sweep(now time.Time) int {
	if s.TTL <= 0 {
		return 0
	}

	var expired []*Session

	s.mutex.Lock()
	for key, session := range s.sessions {
		if now.Sub(session.IdleSince()) > s.TTL {
			delete(s.sessions, key)
			expired = append(expired, session)
		}
	}
	activeSessions.Set(float64(len(s.sessions)))
	s.mutex.Unlock()

	for _, session := range expired {
		session.Close()
	}

	return len(expired)
}
