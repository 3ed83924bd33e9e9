package models

import (
	"context"
	"sync"
	"time"

	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

// SessionStore keeps client sessions keyed by the opaque id carried in the
// session cookie.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*types.ClientSession
	clock    tool.Clock
}

func NewSessionStore(clk tool.Clock) *SessionStore {
	if clk == nil {
		clk = tool.RealClock{}
	}
	return &SessionStore{
		sessions: map[string]*types.ClientSession{},
		clock:    clk,
	}
}

// Login starts an authenticated session holding a snapshot of token. Any
// previous session under oldID is dropped and a new id is issued.
func (s *SessionStore) Login(oldID, token, remoteAddr string) types.ClientSession {
	now := s.clock.Now()
	sess := &types.ClientSession{
		ID:         tool.GenerateRandomUUID(),
		LoggedIn:   true,
		Token:      token,
		CreatedAt:  now,
		LastSeen:   now,
		RemoteAddr: remoteAddr,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if oldID != "" {
		delete(s.sessions, oldID)
	}
	s.sessions[sess.ID] = sess
	return *sess
}

// Logout forgets the session.
func (s *SessionStore) Logout(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Get returns a copy of the session.
func (s *SessionStore) Get(id string) (types.ClientSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return types.ClientSession{}, false
	}
	return *sess, true
}

// Authorize runs the guard against the stored session and persists its side
// effect: a rejected session loses its login state. An allowed session has
// its last-seen time refreshed.
func (s *SessionStore) Authorize(id string, cfg types.ServerConfig) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		// still report offline first so the UI can show the right page
		if !cfg.IsRunning {
			return Decision{Reason: ReasonOffline}
		}
		return Decision{Reason: ReasonLoginRequired}
	}
	decision := Authorize(sess, cfg)
	if decision.Allowed {
		sess.LastSeen = s.clock.Now()
		decision.Session = *sess
	}
	return decision
}

// ActiveCount counts logged-in sessions whose token matches and that were
// seen within window. A zero window counts every valid session.
func (s *SessionStore) ActiveCount(token string, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	n := 0
	for _, sess := range s.sessions {
		if !sess.LoggedIn || sess.Token != token {
			continue
		}
		if window > 0 && now.Sub(sess.LastSeen) > window {
			continue
		}
		n++
	}
	return n
}

// PruneInvalid drops sessions that can no longer authorize under token and
// have not been seen for at least idle. Recently refused sessions are kept so
// status polls can still tell the browser to return to the login page.
func (s *SessionStore) PruneInvalid(token string, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	n := 0
	for id, sess := range s.sessions {
		if sess.LoggedIn && sess.Token == token {
			continue
		}
		if now.Sub(sess.LastSeen) < idle {
			continue
		}
		delete(s.sessions, id)
		n++
	}
	return n
}

// StartPruner drops dead sessions every interval until ctx is done.
func (s *SessionStore) StartPruner(ctx context.Context, cfg *ConfigStore, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.PruneInvalid(cfg.SessionToken(), idle); n > 0 {
					tool.DefaultLogger.Debugf("[Session] Pruned %d stale session(s)", n)
				}
			}
		}
	}()
}
