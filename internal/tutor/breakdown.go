package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"codeprep.io/assistant/internal/llm"
)

type SubTopic struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"keyPoints"`
	Order       int      `json:"order"`
}

// TopicBreakdown is the structured outline a tutoring session walks
// through. Generated once at session start and read-only afterwards.
type TopicBreakdown struct {
	MainTopic     string     `json:"mainTopic"`
	Overview      string     `json:"overview"`
	SubTopics     []SubTopic `json:"subTopics"`
	SuggestedPath string     `json:"suggestedPath"`
	EstimatedTime string     `json:"estimatedTime"`
}

const breakdownInstruction = "You are a programming tutor designing a lesson plan. " +
	"Given a topic, produce a JSON object with this exact shape: " +
	`{"mainTopic": "...", "overview": "...", "subTopics": [{"title": "...", "description": "...", "keyPoints": ["..."], "order": 1}], "suggestedPath": "...", "estimatedTime": "..."}` + ". " +
	"Use 3 to 5 subTopics ordered from fundamentals to advanced, each with 2 to 4 keyPoints. " +
	"overview is 2-3 sentences. Respond with the JSON object only."

// generateBreakdown asks the completion API for an outline, falling back
// to a deterministic three-part plan when the call fails or the output
// doesn't parse.
func generateBreakdown(ctx context.Context, completer llm.Completer, topic string) TopicBreakdown {
	if !completer.Available() {
		return fallbackBreakdown(topic)
	}

	raw, err := completer.Complete(ctx, breakdownInstruction,
		[]llm.Turn{{Role: "user", Content: fmt.Sprintf("Create a lesson plan for: %s", topic)}},
		llm.Options{Temperature: 0.4, MaxTokens: 2048, JSONMode: true})
	if err != nil {
		log.Printf("Breakdown generation failed for topic %q, using fallback outline: %v", topic, err)
		return fallbackBreakdown(topic)
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var breakdown TopicBreakdown
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &breakdown); err != nil || len(breakdown.SubTopics) == 0 {
		log.Printf("Breakdown JSON for topic %q was malformed, using fallback outline: %v", topic, err)
		return fallbackBreakdown(topic)
	}
	if breakdown.MainTopic == "" {
		breakdown.MainTopic = topic
	}
	return breakdown
}

func fallbackBreakdown(topic string) TopicBreakdown {
	return TopicBreakdown{
		MainTopic: topic,
		Overview: fmt.Sprintf("This session covers %s from the ground up: what it is, how it works in practice, "+
			"and how it shows up in coding problems.", topic),
		SubTopics: []SubTopic{
			{
				Title:       fmt.Sprintf("Fundamentals of %s", topic),
				Description: fmt.Sprintf("The core definition of %s and the vocabulary around it.", topic),
				KeyPoints:   []string{"Definition and intuition", "When to use it", "Common terminology"},
				Order:       1,
			},
			{
				Title:       fmt.Sprintf("%s in practice", topic),
				Description: "Working through a concrete example step by step.",
				KeyPoints:   []string{"A worked example", "Typical pitfalls", "Complexity considerations"},
				Order:       2,
			},
			{
				Title:       fmt.Sprintf("Applying %s to problems", topic),
				Description: "Recognizing problems that call for this technique and solving one together.",
				KeyPoints:   []string{"Recognizing the pattern", "Solving a practice problem", "Variations to explore"},
				Order:       3,
			},
		},
		SuggestedPath: "Work through the subtopics in order, then try a practice problem.",
		EstimatedTime: "45-60 minutes",
	}
}

// welcomeMessage enumerates every subtopic title exactly once, in order,
// and tells the learner how to steer the session.
func welcomeMessage(breakdown TopicBreakdown) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome! Let's learn %s together.\n\n%s\n\nHere's our plan:\n", breakdown.MainTopic, breakdown.Overview)
	for i, sub := range breakdown.SubTopics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sub.Title)
	}
	b.WriteString("\nSay \"start\" to begin with the first subtopic, give me a subtopic number to jump there, or just ask a question.")
	return b.String()
}
