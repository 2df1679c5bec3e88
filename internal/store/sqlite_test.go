package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProblems(t *testing.T, s *SQLiteStore) {
	t.Helper()
	seed := `[
		{"id": 1, "title": "Two Sum", "description": "Find two numbers adding to target.", "difficulty": "Easy", "topics": ["Array", "Hash Table"]},
		{"id": 2, "title": "Valid Parentheses", "description": "Check bracket matching.", "difficulty": "Easy", "topics": ["String", "Stack"]},
		{"id": 3, "title": "3Sum", "description": "Find zero-sum triplets.", "difficulty": "medium", "topics": ["Array", "Two Pointers"]},
		{"id": 4, "title": "Course Schedule", "description": "Detect cycles in prerequisites.", "difficulty": "Medium", "topics": ["Graph", "Topological Sort"]}
	]`
	path := filepath.Join(t.TempDir(), "problems.json")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	count, err := s.IngestProblemsFromFile(path)
	if err != nil {
		t.Fatalf("Ingestion failed: %v", err)
	}
	if count != 4 {
		t.Fatalf("Expected 4 problems ingested, got %d", count)
	}
}

func TestIngestProblems(t *testing.T) {
	s := newTestStore(t)
	seedProblems(t, s)

	problems, err := s.GetAllProblems()
	if err != nil {
		t.Fatalf("GetAllProblems failed: %v", err)
	}
	if len(problems) != 4 {
		t.Fatalf("Expected 4 problems, got %d", len(problems))
	}
	if problems[0].Title != "Two Sum" {
		t.Errorf("Expected first problem Two Sum, got %s", problems[0].Title)
	}
	if len(problems[0].Topics) != 2 || problems[0].Topics[0] != "Array" {
		t.Errorf("Topics not round-tripped: %v", problems[0].Topics)
	}
	// Lowercase difficulty in the seed file is normalized.
	if problems[2].Difficulty != "Medium" {
		t.Errorf("Expected normalized difficulty Medium, got %s", problems[2].Difficulty)
	}
}

func TestRecordAttempt(t *testing.T) {
	s := newTestStore(t)
	seedProblems(t, s)

	if err := s.RecordAttempt(1, 1, false); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}
	if err := s.RecordAttempt(1, 1, true); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}
	// Completion is sticky: a later failed attempt must not reset it.
	if err := s.RecordAttempt(1, 1, false); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}

	progress, err := s.GetUserProgress(1)
	if err != nil {
		t.Fatalf("GetUserProgress failed: %v", err)
	}
	if len(progress) != 1 {
		t.Fatalf("Expected 1 progress row, got %d", len(progress))
	}
	if progress[0].Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", progress[0].Attempts)
	}
	if !progress[0].Completed {
		t.Error("Expected completion to stick after a later failed attempt")
	}
}

func TestTutoringSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateTutoringSession(7, "Recursion", `{"mainTopic":"Recursion"}`)
	if err != nil {
		t.Fatalf("CreateTutoringSession failed: %v", err)
	}
	if sess.Status != "active" {
		t.Fatalf("Expected new session active, got %s", sess.Status)
	}

	got, err := s.GetTutoringSession(sess.ID, 7)
	if err != nil {
		t.Fatalf("GetTutoringSession failed: %v", err)
	}
	if got == nil || got.Topic != "Recursion" {
		t.Fatalf("Session did not round-trip: %+v", got)
	}

	// A different user must not see the session.
	other, err := s.GetTutoringSession(sess.ID, 8)
	if err != nil {
		t.Fatalf("GetTutoringSession failed: %v", err)
	}
	if other != nil {
		t.Error("Expected nil for another user's lookup")
	}

	feedback := "great session"
	if err := s.CompleteTutoringSession(sess.ID, 7, &feedback); err != nil {
		t.Fatalf("CompleteTutoringSession failed: %v", err)
	}

	// The transition is one-way.
	err = s.CompleteTutoringSession(sess.ID, 7, nil)
	if !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("Expected ErrSessionCompleted on second completion, got %v", err)
	}

	got, err = s.GetTutoringSession(sess.ID, 7)
	if err != nil {
		t.Fatalf("GetTutoringSession failed: %v", err)
	}
	if got.Status != "completed" || got.CompletedAt == nil {
		t.Errorf("Expected completed session with timestamp, got %+v", got)
	}
	if got.Feedback == nil || *got.Feedback != "great session" {
		t.Errorf("Feedback not recorded: %+v", got.Feedback)
	}

	// Subtopic updates on a completed session are rejected too.
	err = s.UpdateTutoringSubtopic(sess.ID, 1)
	if !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("Expected ErrSessionCompleted on subtopic update, got %v", err)
	}
}

func TestTutoringMessages(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateTutoringSession(1, "Graphs", `{}`)
	if err != nil {
		t.Fatalf("CreateTutoringSession failed: %v", err)
	}

	for _, m := range []TutoringMessage{
		{SessionID: sess.ID, Sender: "tutor", Content: "welcome"},
		{SessionID: sess.ID, Sender: "user", Content: "start"},
		{SessionID: sess.ID, Sender: "tutor", Content: "lesson one"},
	} {
		msg := m
		if err := s.CreateTutoringMessage(&msg); err != nil {
			t.Fatalf("CreateTutoringMessage failed: %v", err)
		}
	}

	messages, err := s.GetTutoringMessages(sess.ID, 100, 0)
	if err != nil {
		t.Fatalf("GetTutoringMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	if messages[0].Content != "welcome" || messages[2].Content != "lesson one" {
		t.Errorf("Messages out of order: %v", messages)
	}
}
