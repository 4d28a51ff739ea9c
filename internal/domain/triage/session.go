package triage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ordenaclinic/ordenaclinic/internal/platform/websocket"
)

// ErrTooManySessions is returned when the store is full of active sessions.
var ErrTooManySessions = errors.New("too many active queue sessions")

// SessionConfig bounds the number and lifetime of queue sessions.
type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
}

type session struct {
	mu       sync.Mutex
	svc      *Service
	lastSeen time.Time
}

// SessionStore owns one Service per session id and runs every operation on
// a session while holding that session's lock, so a Service only ever sees
// one operation at a time. Sessions idle for longer than the TTL are dropped
// together with their queue.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	cfg      SessionConfig
	logger   zerolog.Logger
	pub      websocket.EventPublisher
	example  *Dataset
	now      func() time.Time
}

func NewSessionStore(cfg SessionConfig, logger zerolog.Logger) *SessionStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetPublisher makes every new session publish on its own queue topic.
func (st *SessionStore) SetPublisher(pub websocket.EventPublisher) {
	st.pub = pub
}

// SetExample overrides the demonstration dataset of new sessions.
func (st *SessionStore) SetExample(ds *Dataset) {
	st.example = ds
}

// WithSession runs fn against the queue of session id, creating it on first
// use.
func (st *SessionStore) WithSession(ctx context.Context, id string, fn func(*Service) error) error {
	sess, err := st.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	err = fn(sess.svc)

	st.mu.Lock()
	sess.lastSeen = st.now()
	st.mu.Unlock()
	return err
}

func (st *SessionStore) get(id string) (*session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if sess, ok := st.sessions[id]; ok {
		sess.lastSeen = now
		return sess, nil
	}

	if len(st.sessions) >= st.cfg.MaxSessions {
		st.sweepLocked(now)
		if len(st.sessions) >= st.cfg.MaxSessions {
			return nil, ErrTooManySessions
		}
	}

	logger := st.logger.With().Str("session_id", id).Logger()
	svc := NewService(NewMemoryRepo(), logger)
	if st.pub != nil {
		svc.SetPublisher(st.pub, websocket.QueueTopic(id))
	}
	if st.example != nil {
		svc.SetExample(st.example)
	}
	sess := &session{svc: svc, lastSeen: now}
	st.sessions[id] = sess
	logger.Debug().Msg("queue session created")
	return sess, nil
}

// Sweep drops idle sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sweepLocked(st.now())
}

func (st *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range st.sessions {
		if now.Sub(sess.lastSeen) > st.cfg.TTL {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.logger.Info().Int("removed", removed).Msg("idle queue sessions expired")
	}
	return removed
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
