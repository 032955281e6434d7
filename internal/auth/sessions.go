package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// Session is an authenticated administrator.
type Session struct {
	ID              string     `json:"-"`
	User            model.User `json:"user"`
	IsAdmin         bool       `json:"isAdmin"`
	AccessToken     string     `json:"-"`
	RefreshToken    string     `json:"-"`
	AccessExpiresAt time.Time  `json:"accessExpiresAt"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func NewSession(user model.User, tokens cinemate.Tokens, now time.Time) *Session {
	sess := &Session{
		ID:           uuid.NewString(),
		User:         user,
		IsAdmin:      true,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		CreatedAt:    now,
	}
	if tokens.AccessToken != "" {
		sess.AccessExpiresAt = AccessExpiry(tokens.AccessToken, now)
	}
	return sess
}

// Sessions keeps sessions in process memory. They do not survive a restart.
type Sessions struct {
	mu      sync.Mutex
	byID    map[string]*sessionEntry
	ttl     time.Duration
	now     func() time.Time
	onEvict []func(*Session)
}

type sessionEntry struct {
	session *Session
	expires time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		byID: make(map[string]*sessionEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// OnEvict registers fn to run whenever a session is removed or expires.
func (s *Sessions) OnEvict(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = append(s.onEvict, fn)
}

func (s *Sessions) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = &sessionEntry{session: sess, expires: s.now().Add(s.ttl)}
}

func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	e, ok := s.byID[id]
	if ok && s.ttl > 0 && !s.now().Before(e.expires) {
		delete(s.byID, id)
		hooks := s.onEvict
		s.mu.Unlock()
		runEvict(hooks, e.session)
		return nil, false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	e, ok := s.byID[id]
	delete(s.byID, id)
	hooks := s.onEvict
	s.mu.Unlock()
	if ok {
		runEvict(hooks, e.session)
	}
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	now := s.now()
	var expired []*Session
	for id, e := range s.byID {
		if s.ttl > 0 && !now.Before(e.expires) {
			expired = append(expired, e.session)
			delete(s.byID, id)
		}
	}
	hooks := s.onEvict
	s.mu.Unlock()

	for _, sess := range expired {
		runEvict(hooks, sess)
	}
	return len(expired)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func runEvict(hooks []func(*Session), sess *Session) {
	for _, fn := range hooks {
		fn(sess)
	}
}
