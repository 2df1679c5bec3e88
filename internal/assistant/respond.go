package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"

	"codeprep.io/assistant/internal/llm"
)

// promptWindow is how many prior turns are forwarded to the completion API.
const promptWindow = 6

type handlerFunc func(ctx context.Context, sess Session, cls Classification, message string) (string, error)

// Responder turns a classified message into a decorated reply. One
// handler per intent; the table is built once so a missing intent is a
// construction-time bug, not a runtime branch.
type Responder struct {
	completer   llm.Completer
	recommender *Recommender
	handlers    map[Intent]handlerFunc
}

func NewResponder(completer llm.Completer, recommender *Recommender) *Responder {
	r := &Responder{
		completer:   completer,
		recommender: recommender,
	}
	r.handlers = map[Intent]handlerFunc{
		IntentProblemHelp:        r.generate,
		IntentConceptExplanation: r.generate,
		IntentDebugging:          r.generate,
		IntentGeneralQuestion:    r.generate,
		IntentCodeReview:         r.generate,
		IntentCareerAdvice:       r.generateWithProgress,
		IntentPracticeRequest:    r.generateWithProgress,
	}
	return r
}

// Respond always returns a usable reply: completion failures degrade to
// the canned per-intent text, never to an error.
func (r *Responder) Respond(ctx context.Context, sess Session, cls Classification, message string) *Reply {
	handler, ok := r.handlers[cls.Intent]
	if !ok {
		handler = r.generate
	}

	text, err := handler(ctx, sess, cls, message)
	if err != nil {
		log.Printf("Completion failed for intent %s (session %s), using canned reply: %v", cls.Intent, sess.ID, err)
		text = cannedReply(cls.Intent)
	}

	reply := &Reply{
		Message:           text,
		Intent:            cls.Intent,
		FollowUpQuestions: followUpQuestions[cls.Intent],
		ActionItems:       actionItemsFor(cls.Intent, sess.Context.UserLevel),
	}
	r.decorate(reply, sess, cls)
	return reply
}

// decorate attaches the locally computed extras. These never depend on
// the external call and must not fail the reply.
func (r *Responder) decorate(reply *Reply, sess Session, cls Classification) {
	switch cls.Intent {
	case IntentPracticeRequest:
		problems, err := r.recommender.RecommendProblems(sess.UserID, 5)
		if err != nil {
			log.Printf("Failed to compute recommendations for user %d: %v", sess.UserID, err)
			return
		}
		reply.RelatedProblems = problems
		for _, p := range problems {
			reply.Suggestions = append(reply.Suggestions, p.Title)
		}
	case IntentCareerAdvice:
		guidance, err := r.recommender.CareerGuidance(sess.UserID)
		if err != nil {
			log.Printf("Failed to compute career guidance for user %d: %v", sess.UserID, err)
			return
		}
		reply.Suggestions = guidance.NextSteps
	default:
		topic := cls.Topic
		if topic == "" {
			topic = sess.Context.CurrentTopic
		}
		if cls.Intent == IntentConceptExplanation && topic != "" {
			reply.Resources = []string{
				fmt.Sprintf("Work through the %s problems below after reading the explanation", topic),
				fmt.Sprintf("Write your own summary of %s and test it against an example", topic),
			}
		}
		problems, err := r.recommender.RelatedProblems(sess.UserID, topic, 5)
		if err != nil {
			log.Printf("Failed to find related problems for user %d: %v", sess.UserID, err)
			return
		}
		reply.RelatedProblems = problems
	}
}

// generate is the plain handler: level/topic-aware instruction plus the
// recent conversation window.
func (r *Responder) generate(ctx context.Context, sess Session, cls Classification, message string) (string, error) {
	prompt := systemPrompt(cls.Intent, sess.Context.UserLevel, cls.Topic)
	return r.completer.Complete(ctx, prompt, promptTurns(sess, message),
		llm.Options{Temperature: 0.7, MaxTokens: 1024})
}

// generateWithProgress additionally injects the user's topic strengths
// and weaknesses so the model's advice is grounded in real history.
func (r *Responder) generateWithProgress(ctx context.Context, sess Session, cls Classification, message string) (string, error) {
	prompt := systemPrompt(cls.Intent, sess.Context.UserLevel, cls.Topic)

	stats, err := r.recommender.TopicStats(sess.UserID)
	if err != nil {
		log.Printf("Failed to load topic stats for user %d, prompting without them: %v", sess.UserID, err)
	} else if summary := progressSummary(stats); summary != "" {
		prompt += "\n\nThe user's practice history: " + summary
	}

	return r.completer.Complete(ctx, prompt, promptTurns(sess, message),
		llm.Options{Temperature: 0.7, MaxTokens: 1024})
}

func progressSummary(stats []TopicStats) string {
	var weak, strong []string
	for _, st := range stats {
		switch {
		case st.IsWeakness():
			weak = append(weak, st.Topic)
		case st.IsStrength():
			strong = append(strong, st.Topic)
		}
	}
	if len(weak) == 0 && len(strong) == 0 {
		return ""
	}
	var parts []string
	if len(strong) > 0 {
		parts = append(parts, fmt.Sprintf("strong in %s", strings.Join(strong, ", ")))
	}
	if len(weak) > 0 {
		parts = append(parts, fmt.Sprintf("struggling with %s", strings.Join(weak, ", ")))
	}
	return strings.Join(parts, "; ")
}

// promptTurns builds the completion window: the last few stored turns
// plus the new user message.
func promptTurns(sess Session, message string) []llm.Turn {
	messages := sess.Messages
	if len(messages) > promptWindow {
		messages = messages[len(messages)-promptWindow:]
	}

	var turns []llm.Turn
	for _, msg := range messages {
		if msg.Role != "user" && msg.Role != "assistant" {
			continue
		}
		turns = append(turns, llm.Turn{Role: msg.Role, Content: msg.Content})
	}
	return append(turns, llm.Turn{Role: "user", Content: message})
}
