package assistant

import (
	"context"
	"testing"

	"codeprep.io/assistant/internal/llm"
)

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Intent
	}{
		{"error keyword", "I'm getting an error in my loop", IntentDebugging},
		{"debug keyword", "how do I debug this", IntentDebugging},
		{"career keyword", "any career tips?", IntentCareerAdvice},
		{"job keyword", "preparing for a job interview", IntentCareerAdvice},
		{"review keyword", "can you review my solution", IntentCodeReview},
		{"practice keyword", "what should I practice next", IntentPracticeRequest},
		{"explain keyword", "explain dynamic programming", IntentConceptExplanation},
		{"help keyword", "I need help with two sum", IntentProblemHelp},
		{"no keyword", "what is the meaning of life", IntentGeneralQuestion},
		{"uppercase input", "ERROR in line 3", IntentDebugging},
		// "debug"/"error" is checked before "help", so mixed messages
		// resolve to debugging.
		{"rule order", "help me fix this error", IntentDebugging},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keywordClassify(tt.message)
			if got.Intent != tt.expected {
				t.Errorf("keywordClassify(%q) = %s, want %s", tt.message, got.Intent, tt.expected)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Errorf("Confidence out of range: %f", got.Confidence)
			}
		})
	}
}

func TestKeywordClassifyIsDeterministic(t *testing.T) {
	message := "I'm getting an error in my loop"
	first := keywordClassify(message)
	for i := 0; i < 10; i++ {
		if got := keywordClassify(message); got != first {
			t.Fatalf("keywordClassify not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestClassifierWithStubUsesKeywords(t *testing.T) {
	c := NewClassifier(llm.NewStub())
	got := c.Classify(context.Background(), "please review my code", LevelBeginner)
	if got.Intent != IntentCodeReview {
		t.Errorf("Expected code-review via keyword fallback, got %s", got.Intent)
	}
	if got.Confidence != 0.6 {
		t.Errorf("Expected keyword confidence 0.6, got %f", got.Confidence)
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		expected   Intent
		confidence float64
	}{
		{"valid", `{"intent": "debugging", "topic": "loops", "confidence": 0.9}`, IntentDebugging, 0.9},
		{"fenced", "```json\n{\"intent\": \"practice-request\", \"confidence\": 0.8}\n```", IntentPracticeRequest, 0.8},
		{"malformed json", `not json at all`, IntentGeneralQuestion, 0.5},
		{"unknown intent", `{"intent": "world-domination", "confidence": 0.99}`, IntentGeneralQuestion, 0.5},
		{"confidence above one", `{"intent": "debugging", "confidence": 3.5}`, IntentDebugging, 1},
		{"negative confidence", `{"intent": "debugging", "confidence": -0.2}`, IntentDebugging, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseClassification(tt.raw)
			if got.Intent != tt.expected {
				t.Errorf("Intent = %s, want %s", got.Intent, tt.expected)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("Confidence = %f, want %f", got.Confidence, tt.confidence)
			}
		})
	}
}
