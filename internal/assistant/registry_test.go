package assistant

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestLevelForSolved(t *testing.T) {
	tests := []struct {
		solved   int
		expected Level
	}{
		{0, LevelBeginner},
		{20, LevelBeginner},
		{21, LevelIntermediate},
		{50, LevelIntermediate},
		{51, LevelAdvanced},
		{200, LevelAdvanced},
	}
	for _, tt := range tests {
		if got := LevelForSolved(tt.solved); got != tt.expected {
			t.Errorf("LevelForSolved(%d) = %s, want %s", tt.solved, got, tt.expected)
		}
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(0, 0)

	sess := r.Create(42, SessionContext{UserLevel: LevelBeginner}, Greeting(LevelBeginner))
	if sess.ID == "" {
		t.Fatal("Expected a generated session ID")
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("Expected session seeded with one message, got %d", len(sess.Messages))
	}
	if sess.Messages[0].Role != "assistant" {
		t.Errorf("Expected greeting role assistant, got %s", sess.Messages[0].Role)
	}
	if sess.Messages[0].Content != Greeting(LevelBeginner) {
		t.Error("Greeting does not match the beginner template")
	}

	got, err := r.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != 42 {
		t.Errorf("Expected user 42, got %d", got.UserID)
	}
}

func TestRegistryAppendIsAppendOnly(t *testing.T) {
	r := NewRegistry(0, 0)
	sess := r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")

	prevLen := 1
	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := r.Append(sess.ID, ChatMessage{Role: role, Content: "turn", Timestamp: time.Now()}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		got, err := r.Get(sess.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.Messages) != prevLen+1 {
			t.Fatalf("Message count did not grow by one: %d -> %d", prevLen, len(got.Messages))
		}
		prevLen = len(got.Messages)
	}
}

func TestRegistryHistoryCap(t *testing.T) {
	r := NewRegistry(0, 4)
	sess := r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")

	for i := 0; i < 10; i++ {
		if err := r.Append(sess.ID, ChatMessage{Role: "user", Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := r.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("Expected history capped to 4, got %d", len(got.Messages))
	}
	if got.Messages[3].Content != "m9" {
		t.Errorf("Expected newest message kept, got %s", got.Messages[3].Content)
	}
}

func TestRegistryEnd(t *testing.T) {
	r := NewRegistry(0, 0)
	sess := r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")

	if err := r.End(sess.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if _, err := r.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after End, got %v", err)
	}
	if err := r.End(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on double End, got %v", err)
	}
}

func TestRegistryListForUser(t *testing.T) {
	r := NewRegistry(0, 0)
	r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")
	r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")
	r.Create(2, SessionContext{UserLevel: LevelAdvanced}, "hi")

	if got := len(r.ListForUser(1)); got != 2 {
		t.Errorf("Expected 2 sessions for user 1, got %d", got)
	}
	if got := len(r.ListForUser(3)); got != 0 {
		t.Errorf("Expected 0 sessions for user 3, got %d", got)
	}
}

func TestRegistryCleanupExpired(t *testing.T) {
	r := NewRegistry(10*time.Millisecond, 0)
	stale := r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")

	time.Sleep(20 * time.Millisecond)
	fresh := r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")

	if removed := r.CleanupExpired(); removed != 1 {
		t.Fatalf("Expected 1 session evicted, got %d", removed)
	}
	if _, err := r.Get(stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected stale session gone")
	}
	if _, err := r.Get(fresh.ID); err != nil {
		t.Errorf("Expected fresh session kept, got %v", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := NewRegistry(0, 0)
	sess := r.Create(1, SessionContext{UserLevel: LevelBeginner}, "hi")

	got, _ := r.Get(sess.ID)
	got.Messages[0].Content = "mutated"

	again, _ := r.Get(sess.ID)
	if again.Messages[0].Content != "hi" {
		t.Error("Snapshot mutation leaked into the registry")
	}
}
