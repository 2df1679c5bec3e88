package assistant

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultIdleTTL      = 30 * time.Minute
	DefaultHistoryLimit = 50
	// cleanupInterval is how often the eviction sweep runs.
	cleanupInterval = 1 * time.Minute
)

// Registry owns the in-memory chat sessions. Access goes through the
// mutex; callers get copies, never pointers into the map.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	idleTTL      time.Duration
	historyLimit int
}

func NewRegistry(idleTTL time.Duration, historyLimit int) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Registry{
		sessions:     make(map[string]*Session),
		idleTTL:      idleTTL,
		historyLimit: historyLimit,
	}
}

// Create stores a new session seeded with the assistant greeting and
// returns a snapshot of it.
func (r *Registry) Create(userID int64, sctx SessionContext, greeting string) Session {
	now := time.Now()
	sess := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Messages: []ChatMessage{{
			Role:      "assistant",
			Content:   greeting,
			Timestamp: now,
		}},
		Context:        sctx,
		StartedAt:      now,
		LastActivityAt: now,
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	return snapshot(sess)
}

// Get returns a snapshot of the session, or ErrSessionNotFound.
func (r *Registry) Get(sessionID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return snapshot(sess), nil
}

// Append adds a message to the session, bumps activity, updates the
// current topic from message metadata and trims history to the limit.
func (r *Registry) Append(sessionID string, msg ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	sess.Messages = append(sess.Messages, msg)
	sess.LastActivityAt = time.Now()
	if msg.Metadata != nil && msg.Metadata.Topic != "" {
		sess.Context.CurrentTopic = msg.Metadata.Topic
	}

	// Cap history to the most recent turns so long sessions do not grow
	// without bound. The greeting is allowed to fall off.
	if len(sess.Messages) > r.historyLimit {
		trimmed := make([]ChatMessage, r.historyLimit)
		copy(trimmed, sess.Messages[len(sess.Messages)-r.historyLimit:])
		sess.Messages = trimmed
	}
	return nil
}

// End removes the session. Removing an unknown session reports
// ErrSessionNotFound so callers can surface it.
func (r *Registry) End(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

// ListForUser returns snapshots of every session owned by the user.
// Linear scan; the registry is small.
func (r *Registry) ListForUser(userID int64) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Session
	for _, sess := range r.sessions {
		if sess.UserID == userID {
			result = append(result, snapshot(sess))
		}
	}
	return result
}

// CleanupExpired evicts sessions idle longer than the TTL and returns
// how many were removed.
func (r *Registry) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.LastActivityAt) > r.idleTTL {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// RunCleanup sweeps expired sessions periodically until the context is
// canceled. Run it in its own goroutine.
func (r *Registry) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.CleanupExpired(); removed > 0 {
				log.Printf("Evicted %d idle chat sessions", removed)
			}
		}
	}
}

func snapshot(sess *Session) Session {
	out := *sess
	out.Messages = make([]ChatMessage, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	return out
}
