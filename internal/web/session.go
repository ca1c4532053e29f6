package web

import (
	"sync"
	"time"

	"voucherdesk/internal/voucher"
	"voucherdesk/pkg/logger"
)

const minSweepInterval = time.Second

// ScreenFactory mounts a new screen for a page session.
type ScreenFactory func() *voucher.Screen

type session struct {
	screen   *voucher.Screen
	lastSeen time.Time
}

// SessionStore keeps one mounted screen per page session. Sessions idle for
// longer than ttl are unmounted, which discards any in-flight submission.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*session
	ttl       time.Duration
	newScreen ScreenFactory
	log       *logger.Logger
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewSessionStore(ttl time.Duration, newScreen ScreenFactory, log *logger.Logger) *SessionStore {
	store := &SessionStore{
		sessions:  make(map[string]*session),
		ttl:       ttl,
		newScreen: newScreen,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	go store.cleanup()

	return store
}

// Create mounts a new screen. The session id is the screen id.
func (s *SessionStore) Create() *voucher.Screen {
	screen := s.newScreen()

	s.mu.Lock()
	s.sessions[screen.ID()] = &session{screen: screen, lastSeen: s.now()}
	count := len(s.sessions)
	s.mu.Unlock()

	s.log.Debug("Page session created", "session_id", screen.ID(), "active_sessions", count)
	return screen
}

// Get returns the live screen for id and refreshes its idle timer.
func (s *SessionStore) Get(id string) (*voucher.Screen, bool) {
	s.mu.Lock()
	sess, exists := s.sessions[id]
	if !exists {
		s.mu.Unlock()
		return nil, false
	}

	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		s.mu.Unlock()
		sess.screen.Close()
		s.log.Info("Page session expired", "session_id", id)
		return nil, false
	}

	sess.lastSeen = now
	s.mu.Unlock()
	return sess.screen, true
}

// Close unmounts the screen of id. It reports whether the session existed.
func (s *SessionStore) Close(id string) bool {
	s.mu.Lock()
	sess, exists := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !exists {
		return false
	}
	sess.screen.Close()
	s.log.Debug("Page session closed", "session_id", id)
	return true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) cleanup() {
	interval := s.ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *SessionStore) sweep() {
	var expired []*session

	s.mu.Lock()
	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.screen.Close()
	}
	if len(expired) > 0 {
		s.log.Info("Expired page sessions unmounted", "count", len(expired))
	}
}

// Stop ends the cleanup loop and unmounts every remaining screen.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		sessions := s.sessions
		s.sessions = make(map[string]*session)
		s.mu.Unlock()

		for _, sess := range sessions {
			sess.screen.Close()
		}
	})
}
