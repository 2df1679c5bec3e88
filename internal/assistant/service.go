// Package assistant implements the chat orchestration core: an
// in-memory session registry, an intent classifier and a response
// generator that delegates text generation to the completion API and
// decorates the result locally.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"codeprep.io/assistant/internal/llm"
	"codeprep.io/assistant/internal/store"
)

type Service struct {
	registry    *Registry
	classifier  *Classifier
	responder   *Responder
	recommender *Recommender
	store       *store.SQLiteStore
}

func NewService(db *store.SQLiteStore, completer llm.Completer, registry *Registry) *Service {
	recommender := NewRecommender(db)
	return &Service{
		registry:    registry,
		classifier:  NewClassifier(completer),
		responder:   NewResponder(completer, recommender),
		recommender: recommender,
		store:       db,
	}
}

func (s *Service) Recommender() *Recommender { return s.recommender }

// StartSession derives the user's level from stored progress, seeds a
// level-specific greeting and registers the session.
func (s *Service) StartSession(userID int64) (Session, error) {
	progress, err := s.store.GetUserProgress(userID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load progress for session start: %w", err)
	}

	solved := 0
	for _, entry := range progress {
		if entry.Completed {
			solved++
		}
	}
	level := LevelForSolved(solved)

	sctx := SessionContext{
		UserLevel:      level,
		RecentProblems: recentProblemIDs(progress, 5),
	}
	return s.registry.Create(userID, sctx, Greeting(level)), nil
}

// HandleMessage runs one full turn: classify, generate, decorate, append
// both messages to the session. The returned reply is always best-effort
// usable; only an unknown session is an error.
func (s *Service) HandleMessage(ctx context.Context, sessionID string, userID int64, content string) (*Reply, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}

	cls := s.classifier.Classify(ctx, content, sess.Context.UserLevel)

	userMsg := ChatMessage{
		Role:      "user",
		Content:   content,
		Timestamp: time.Now(),
		Metadata: &MessageMetadata{
			Intent:     cls.Intent,
			Topic:      cls.Topic,
			Confidence: cls.Confidence,
		},
	}
	if err := s.registry.Append(sessionID, userMsg); err != nil {
		return nil, err
	}

	reply := s.responder.Respond(ctx, sess, cls, content)

	assistantMsg := ChatMessage{
		Role:      "assistant",
		Content:   reply.Message,
		Timestamp: time.Now(),
		Metadata:  &MessageMetadata{Intent: cls.Intent, Topic: cls.Topic},
	}
	if err := s.registry.Append(sessionID, assistantMsg); err != nil {
		return nil, err
	}

	return reply, nil
}

func (s *Service) GetSession(sessionID string, userID int64) (Session, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != userID {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) ListSessions(userID int64) []Session {
	return s.registry.ListForUser(userID)
}

func (s *Service) EndSession(sessionID string, userID int64) error {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrSessionNotFound
	}
	return s.registry.End(sessionID)
}

// recentProblemIDs returns the most recently attempted problem IDs,
// newest first.
func recentProblemIDs(progress []store.ProgressEntry, limit int) []int64 {
	entries := make([]store.ProgressEntry, len(progress))
	copy(entries, progress)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAttempt.After(entries[j].LastAttempt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProblemID)
	}
	return ids
}
