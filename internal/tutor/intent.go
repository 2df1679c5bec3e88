package tutor

import (
	"strconv"
	"strings"
)

// tutorIntent is the narrow, tutoring-specific intent vocabulary. It is
// detected by plain string matching, never by a completion call.
type tutorIntent string

const (
	intentStartLearning tutorIntent = "start_learning"
	intentJumpTo        tutorIntent = "jump_to"
	intentExample       tutorIntent = "request_example"
	intentClarification tutorIntent = "request_clarification"
	intentNextSubtopic  tutorIntent = "next_subtopic"
	intentSummary       tutorIntent = "request_summary"
	intentQuestion      tutorIntent = "question"
	intentDiscussion    tutorIntent = "general_discussion"
)

// detectIntent labels a tutoring message. For jump_to the returned index
// is the zero-based subtopic; otherwise it is -1.
func detectIntent(message string, subtopicCount int) (tutorIntent, int) {
	lowered := strings.ToLower(strings.TrimSpace(message))

	// A bare number, or "subtopic N", jumps to that subtopic.
	if n, err := strconv.Atoi(lowered); err == nil && n >= 1 && n <= subtopicCount {
		return intentJumpTo, n - 1
	}
	for _, prefix := range []string{"subtopic ", "go to ", "jump to "} {
		if rest, ok := strings.CutPrefix(lowered, prefix); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n >= 1 && n <= subtopicCount {
				return intentJumpTo, n - 1
			}
		}
	}

	switch {
	case lowered == "start" || strings.Contains(lowered, "let's start") || strings.Contains(lowered, "lets start") || strings.Contains(lowered, "begin"):
		return intentStartLearning, -1
	case strings.Contains(lowered, "example"):
		return intentExample, -1
	case strings.Contains(lowered, "next") || strings.Contains(lowered, "continue") || strings.Contains(lowered, "move on"):
		return intentNextSubtopic, -1
	case strings.Contains(lowered, "summary") || strings.Contains(lowered, "summarize") || strings.Contains(lowered, "recap"):
		return intentSummary, -1
	case strings.Contains(lowered, "don't understand") || strings.Contains(lowered, "dont understand") ||
		strings.Contains(lowered, "confused") || strings.Contains(lowered, "clarify") || strings.Contains(lowered, "what do you mean"):
		return intentClarification, -1
	case strings.Contains(lowered, "?"):
		return intentQuestion, -1
	default:
		return intentDiscussion, -1
	}
}
