package assistant

import "time"

// Level is the coarse skill classification derived from solved-problem
// counts when a session starts.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// LevelForSolved maps a solved-problem count onto a level:
// 0-20 beginner, 21-50 intermediate, 51+ advanced.
func LevelForSolved(solved int) Level {
	switch {
	case solved > 50:
		return LevelAdvanced
	case solved > 20:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

type MessageMetadata struct {
	Intent     Intent  `json:"intent,omitempty"`
	Topic      string  `json:"topic,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ChatMessage is one turn of a chat session. Immutable once appended.
type ChatMessage struct {
	Role      string           `json:"role"` // "user", "assistant" or "system"
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

type SessionContext struct {
	CurrentTopic   string   `json:"current_topic,omitempty"`
	LearningGoals  []string `json:"learning_goals,omitempty"`
	UserLevel      Level    `json:"user_level"`
	RecentProblems []int64  `json:"recent_problems,omitempty"`
}

// Session is the in-memory conversational state for one user. It lives
// only inside the registry and is lost on process restart.
type Session struct {
	ID             string         `json:"session_id"`
	UserID         int64          `json:"user_id"`
	Messages       []ChatMessage  `json:"messages"`
	Context        SessionContext `json:"context"`
	StartedAt      time.Time      `json:"started_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

type ActionItem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // "high", "medium", "low"
}

// Reply is the decorated assistant response for one user message.
type Reply struct {
	Message           string               `json:"message"`
	Intent            Intent               `json:"intent"`
	Suggestions       []string             `json:"suggestions,omitempty"`
	Resources         []string             `json:"resources,omitempty"`
	FollowUpQuestions []string             `json:"followUpQuestions,omitempty"`
	RelatedProblems   []RecommendedProblem `json:"relatedProblems,omitempty"`
	ActionItems       []ActionItem         `json:"actionItems,omitempty"`
}
