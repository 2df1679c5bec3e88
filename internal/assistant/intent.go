package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"codeprep.io/assistant/internal/llm"
)

// Intent labels what kind of help a message is asking for.
type Intent string

const (
	IntentProblemHelp        Intent = "problem-help"
	IntentConceptExplanation Intent = "concept-explanation"
	IntentDebugging          Intent = "debugging"
	IntentCareerAdvice       Intent = "career-advice"
	IntentGeneralQuestion    Intent = "general-question"
	IntentCodeReview         Intent = "code-review"
	IntentPracticeRequest    Intent = "practice-request"
)

var allIntents = []Intent{
	IntentProblemHelp,
	IntentConceptExplanation,
	IntentDebugging,
	IntentCareerAdvice,
	IntentGeneralQuestion,
	IntentCodeReview,
	IntentPracticeRequest,
}

type Classification struct {
	Intent     Intent  `json:"intent"`
	Topic      string  `json:"topic,omitempty"`
	Confidence float64 `json:"confidence"`
}

const classifyInstruction = "You classify messages sent to a coding-practice assistant. " +
	"Given the user's message, respond with a JSON object of the form " +
	`{"intent": "...", "topic": "...", "confidence": 0.0}` + ". " +
	"The intent must be exactly one of: problem-help, concept-explanation, debugging, " +
	"career-advice, general-question, code-review, practice-request. " +
	"topic is the programming topic the message is about, or an empty string. " +
	"confidence is between 0 and 1. Respond with the JSON object only."

// keywordRules are checked in order against the lowercased message when
// the completion API is unavailable or fails.
var keywordRules = []struct {
	keywords []string
	intent   Intent
}{
	{[]string{"debug", "error"}, IntentDebugging},
	{[]string{"career", "job"}, IntentCareerAdvice},
	{[]string{"review"}, IntentCodeReview},
	{[]string{"practice"}, IntentPracticeRequest},
	{[]string{"explain"}, IntentConceptExplanation},
	{[]string{"help"}, IntentProblemHelp},
}

const (
	keywordConfidence = 0.6
	defaultConfidence = 0.5
)

// Classifier labels free-text messages with an intent. It always returns
// a member of the fixed intent set and never propagates a classification
// failure.
type Classifier struct {
	completer llm.Completer
}

func NewClassifier(completer llm.Completer) *Classifier {
	return &Classifier{completer: completer}
}

func (c *Classifier) Classify(ctx context.Context, message string, level Level) Classification {
	if !c.completer.Available() {
		return keywordClassify(message)
	}

	prompt := fmt.Sprintf("%s\n\nThe user is at %s level.", classifyInstruction, level)
	raw, err := c.completer.Complete(ctx, prompt,
		[]llm.Turn{{Role: "user", Content: message}},
		llm.Options{Temperature: 0.1, MaxTokens: 100, JSONMode: true})
	if err != nil {
		log.Printf("Intent classification call failed, using keyword fallback: %v", err)
		return keywordClassify(message)
	}

	return parseClassification(raw)
}

// parseClassification validates the model's JSON. Malformed output or an
// unknown intent degrades to general-question at confidence 0.5.
func parseClassification(raw string) Classification {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var cls Classification
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &cls); err != nil {
		log.Printf("Failed to parse classification JSON: %v", err)
		return Classification{Intent: IntentGeneralQuestion, Confidence: defaultConfidence}
	}

	valid := false
	for _, intent := range allIntents {
		if cls.Intent == intent {
			valid = true
			break
		}
	}
	if !valid {
		return Classification{Intent: IntentGeneralQuestion, Confidence: defaultConfidence}
	}

	if cls.Confidence < 0 {
		cls.Confidence = 0
	} else if cls.Confidence > 1 {
		cls.Confidence = 1
	}
	return cls
}

// keywordClassify is the degraded path: a pure function of the
// lowercased message text.
func keywordClassify(message string) Classification {
	lowered := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return Classification{Intent: rule.intent, Confidence: keywordConfidence}
			}
		}
	}
	return Classification{Intent: IntentGeneralQuestion, Confidence: defaultConfidence}
}
