// Package tutor implements the persisted tutoring flow: a generated
// topic outline walked through one subtopic at a time, with every turn
// stored as a row. Session status moves active -> completed exactly once.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"codeprep.io/assistant/internal/llm"
	"codeprep.io/assistant/internal/store"
)

var ErrSessionNotFound = errors.New("tutoring session not found")

// historyWindow is how many stored turns are forwarded to the completion API.
const historyWindow = 6

type Tutor struct {
	store     *store.SQLiteStore
	completer llm.Completer
}

func NewTutor(db *store.SQLiteStore, completer llm.Completer) *Tutor {
	return &Tutor{store: db, completer: completer}
}

// SessionView is a tutoring session with its parsed breakdown and
// message history, as returned to the API layer.
type SessionView struct {
	store.TutoringSession
	Breakdown TopicBreakdown          `json:"breakdown"`
	Messages  []store.TutoringMessage `json:"messages,omitempty"`
}

// Start generates the outline for the topic, persists the session and
// seeds it with a welcome message enumerating the subtopics.
func (t *Tutor) Start(ctx context.Context, userID int64, topic string) (*SessionView, error) {
	breakdown := generateBreakdown(ctx, t.completer, topic)

	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topic breakdown: %w", err)
	}

	sess, err := t.store.CreateTutoringSession(userID, topic, string(breakdownJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create tutoring session: %w", err)
	}

	welcome := welcomeMessage(breakdown)
	welcomeMsg := store.TutoringMessage{
		SessionID: sess.ID,
		Sender:    "tutor",
		Content:   welcome,
	}
	if err := t.store.CreateTutoringMessage(&welcomeMsg); err != nil {
		return nil, fmt.Errorf("failed to store welcome message: %w", err)
	}

	return &SessionView{
		TutoringSession: *sess,
		Breakdown:       breakdown,
		Messages:        []store.TutoringMessage{welcomeMsg},
	}, nil
}

// Get returns the session with its breakdown and full message history.
func (t *Tutor) Get(sessionID string, userID int64) (*SessionView, error) {
	sess, err := t.store.GetTutoringSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	breakdown, err := parseBreakdown(sess.BreakdownJSON)
	if err != nil {
		return nil, err
	}

	messages, err := t.store.GetTutoringMessages(sessionID, 200, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load tutoring messages: %w", err)
	}

	return &SessionView{TutoringSession: *sess, Breakdown: breakdown, Messages: messages}, nil
}

func (t *Tutor) List(userID int64) ([]store.TutoringSession, error) {
	return t.store.GetTutoringSessionsByUserID(userID)
}

// HandleMessage processes one learner turn: detect the narrow intent by
// string matching, generate the tutor reply, persist both turns and
// advance the current subtopic if focus changed. Completed sessions
// reject new messages.
func (t *Tutor) HandleMessage(ctx context.Context, sessionID string, userID int64, content string) (*store.TutoringMessage, error) {
	sess, err := t.store.GetTutoringSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status == "completed" {
		return nil, store.ErrSessionCompleted
	}

	breakdown, err := parseBreakdown(sess.BreakdownJSON)
	if err != nil {
		return nil, err
	}

	intent, jumpIndex := detectIntent(content, len(breakdown.SubTopics))
	nextSubtopic := resolveSubtopic(intent, jumpIndex, sess.CurrentSubtopic, len(breakdown.SubTopics))

	userMsg := store.TutoringMessage{
		SessionID: sessionID,
		Sender:    "user",
		Content:   content,
	}
	if err := t.store.CreateTutoringMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	replyText := t.generateReply(ctx, sessionID, breakdown, nextSubtopic, intent, content)

	tutorMsg := store.TutoringMessage{
		SessionID: sessionID,
		Sender:    "tutor",
		Content:   replyText,
	}
	if err := t.store.CreateTutoringMessage(&tutorMsg); err != nil {
		return nil, fmt.Errorf("failed to store tutor message: %w", err)
	}

	if nextSubtopic != sess.CurrentSubtopic {
		if err := t.store.UpdateTutoringSubtopic(sessionID, nextSubtopic); err != nil {
			log.Printf("Failed to advance subtopic for session %s: %v", sessionID, err)
		}
	}

	return &tutorMsg, nil
}

// Complete moves the session to completed, recording optional feedback.
// A second completion is rejected with store.ErrSessionCompleted.
func (t *Tutor) Complete(sessionID string, userID int64, feedback *string) error {
	sess, err := t.store.GetTutoringSession(sessionID, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	return t.store.CompleteTutoringSession(sessionID, userID, feedback)
}

func (t *Tutor) generateReply(ctx context.Context, sessionID string, breakdown TopicBreakdown, subtopic int, intent tutorIntent, content string) string {
	prompt := tutorSystemPrompt(breakdown, subtopic, intent)

	history, err := t.store.GetLastNTutoringMessages(sessionID, historyWindow)
	if err != nil {
		log.Printf("Failed to load tutoring history for session %s, prompting without it: %v", sessionID, err)
		history = nil
	}
	// The incoming message is already persisted, so the newest history
	// entry is the same turn we append below. Skip it.
	if len(history) > 0 && history[0].Sender == "user" && history[0].Content == content {
		history = history[1:]
	}

	// History comes back newest-first; the prompt wants oldest-first.
	var turns []llm.Turn
	for i := len(history) - 1; i >= 0; i-- {
		role := "assistant"
		if history[i].Sender == "user" {
			role = "user"
		}
		turns = append(turns, llm.Turn{Role: role, Content: history[i].Content})
	}
	turns = append(turns, llm.Turn{Role: "user", Content: content})

	reply, err := t.completer.Complete(ctx, prompt, turns, llm.Options{Temperature: 0.6, MaxTokens: 1024})
	if err != nil {
		log.Printf("Tutor completion failed for session %s, using canned reply: %v", sessionID, err)
		return cannedTutorReply(breakdown, subtopic, intent)
	}
	return reply
}

// resolveSubtopic applies the intent's effect on session focus.
func resolveSubtopic(intent tutorIntent, jumpIndex, current, count int) int {
	switch intent {
	case intentStartLearning:
		return 0
	case intentJumpTo:
		return jumpIndex
	case intentNextSubtopic:
		if current+1 < count {
			return current + 1
		}
		return current
	default:
		return current
	}
}

func tutorSystemPrompt(breakdown TopicBreakdown, subtopic int, intent tutorIntent) string {
	sub := breakdown.SubTopics[subtopic]
	prompt := fmt.Sprintf("You are a patient programming tutor teaching %s. "+
		"The current subtopic is %q: %s Key points to cover: %s. ",
		breakdown.MainTopic, sub.Title, sub.Description, joinPoints(sub.KeyPoints))

	switch intent {
	case intentStartLearning, intentJumpTo, intentNextSubtopic:
		prompt += "Introduce this subtopic from the beginning, building on anything already discussed."
	case intentExample:
		prompt += "Give a concrete, worked example for this subtopic and walk through it step by step."
	case intentClarification:
		prompt += "The learner is confused. Re-explain the last point more slowly, using a different angle or analogy."
	case intentSummary:
		prompt += "Summarize what has been covered so far in this session, organized by subtopic."
	default:
		prompt += "Answer the learner's message in the context of this subtopic, then steer back to the lesson."
	}
	return prompt
}

func cannedTutorReply(breakdown TopicBreakdown, subtopic int, intent tutorIntent) string {
	sub := breakdown.SubTopics[subtopic]
	switch intent {
	case intentSummary:
		return fmt.Sprintf("So far we've been working through %s. We're currently on %q. "+
			"The key points there: %s.", breakdown.MainTopic, sub.Title, joinPoints(sub.KeyPoints))
	case intentExample:
		return fmt.Sprintf("I can't generate a fresh example right now. For %q, try working one yourself around: %s.",
			sub.Title, joinPoints(sub.KeyPoints))
	default:
		return fmt.Sprintf("Let's focus on %q: %s Key points to think about: %s.",
			sub.Title, sub.Description, joinPoints(sub.KeyPoints))
	}
}

func joinPoints(points []string) string {
	if len(points) == 0 {
		return "none listed"
	}
	return strings.Join(points, ", ")
}

func parseBreakdown(breakdownJSON string) (TopicBreakdown, error) {
	var breakdown TopicBreakdown
	if err := json.Unmarshal([]byte(breakdownJSON), &breakdown); err != nil {
		return TopicBreakdown{}, fmt.Errorf("failed to parse stored breakdown: %w", err)
	}
	return breakdown, nil
}
