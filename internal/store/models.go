package store

import "time"

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

// Problem is one entry of the coding-problem catalog.
type Problem struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"` // "Easy", "Medium", "Hard"
	Topics      []string `json:"topics"`
	Companies   []string `json:"companies,omitempty"`
}

// ProgressEntry tracks one user's history against one catalog problem.
type ProgressEntry struct {
	UserID      int64     `json:"user_id"`
	ProblemID   int64     `json:"problem_id"`
	Completed   bool      `json:"completed"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
}

type Submission struct {
	ID          string    `json:"id"` // UUID
	UserID      int64     `json:"user_id"`
	ProblemID   int64     `json:"problem_id"`
	Status      string    `json:"status"` // "accepted", "rejected"
	SubmittedAt time.Time `json:"submitted_at"`
}

// TutoringSession is the persisted variant of a session: the guided
// walk through a generated topic outline. Status moves active -> completed
// exactly once.
type TutoringSession struct {
	ID              string     `json:"id"` // UUID
	UserID          int64      `json:"user_id"`
	Topic           string     `json:"topic"`
	BreakdownJSON   string     `json:"-"` // serialized TopicBreakdown, written once
	CurrentSubtopic int        `json:"current_subtopic"`
	Status          string     `json:"status"` // "active" or "completed"
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Feedback        *string    `json:"feedback,omitempty"`
}

type TutoringMessage struct {
	ID        string    `json:"id"` // UUID
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"` // "user" or "tutor"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
