// Package session keeps the live configurator sessions of a process.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eel-studio/storefront/internal/configurator"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
)

// EngineFactory builds the engine for a new session.
type EngineFactory func(ctx context.Context) (*configurator.Engine, error)

// Session is one open wizard.
type Session struct {
	ID     string
	Token  string
	Engine *configurator.Engine

	created  time.Time
	lastSeen time.Time
}

// Registry maps signed tokens to sessions and expires idle ones.
type Registry struct {
	signer    *Signer
	newEngine EngineFactory
	ttl       time.Duration
	metrics   *metrics.Metrics
	log       *logging.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Config configures a Registry.
type Config struct {
	Signer  *Signer
	Factory EngineFactory
	TTL     time.Duration
	Metrics *metrics.Metrics
	Logger  *logging.Logger
	Clock   func() time.Time
}

// NewRegistry creates an empty registry. TTL defaults to 30 minutes.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		signer:    cfg.Signer,
		newEngine: cfg.Factory,
		ttl:       cfg.TTL,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       cfg.Clock,
		sessions:  make(map[string]*Session),
	}
	if r.ttl <= 0 {
		r.ttl = 30 * time.Minute
	}
	if r.log == nil {
		r.log = logging.NewDiscard()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Create opens a session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	eng, err := r.newEngine(ctx)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := r.now()
	s := &Session{
		ID:       id,
		Token:    r.signer.Sign(id),
		Engine:   eng,
		created:  now,
		lastSeen: now,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionOpened()
	}
	r.log.WithContext(ctx).WithField("session_id", id).Debug("configurator session opened")
	return s, nil
}

// Get resolves a token and refreshes the session's idle timer.
func (r *Registry) Get(token string) (*Session, error) {
	id, ok := r.signer.Verify(token)
	if !ok {
		return nil, errors.NotFound("session", "")
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, errors.NotFound("session", id)
	}
	now := r.now()
	if now.Sub(s.lastSeen) > r.ttl {
		delete(r.sessions, id)
		r.mu.Unlock()
		r.teardown(s, "expired")
		return nil, errors.NotFound("session", id)
	}
	s.lastSeen = now
	r.mu.Unlock()
	return s, nil
}

// Delete tears down the session behind token. Unknown tokens are ignored.
func (r *Registry) Delete(token string) bool {
	id, ok := r.signer.Verify(token)
	if !ok {
		return false
	}
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		r.teardown(s, "deleted")
	}
	return ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep tears down sessions idle longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	now := r.now()
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.teardown(s, "expired")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.WithField("expired", n).Info("configurator sessions expired")
			}
		}
	}
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		r.teardown(s, "shutdown")
	}
}

func (r *Registry) teardown(s *Session, reason string) {
	s.Engine.Close()
	if r.metrics != nil {
		r.metrics.SessionClosed()
	}
	r.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"reason":     reason,
		"age":        r.now().Sub(s.created).String(),
	}).Debug("configurator session closed")
}
