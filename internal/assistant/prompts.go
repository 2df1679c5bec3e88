package assistant

import "fmt"

// Greeting returns the level-specific opening message a new session is
// seeded with.
func Greeting(level Level) string {
	switch level {
	case LevelAdvanced:
		return "Welcome back! You've got a strong track record here. " +
			"Want to tackle some hard problems, review your approach, or dig into an advanced topic?"
	case LevelIntermediate:
		return "Hi! You're making solid progress. I can help you work through problems, " +
			"explain concepts in depth, or suggest what to practice next."
	default:
		return "Hi! I'm your coding assistant. I can help you understand problems, " +
			"explain concepts step by step, or point you at good problems to start with. What would you like to do?"
	}
}

// systemPrompt builds the role instruction for a response handler,
// parameterized by the user's level and, where known, the topic.
func systemPrompt(intent Intent, level Level, topic string) string {
	base := fmt.Sprintf("You are a coding tutor on a practice platform. The user is at %s level. ", level)
	if topic != "" {
		base += fmt.Sprintf("The conversation is about %s. ", topic)
	}

	switch intent {
	case IntentProblemHelp:
		return base + "Guide the user toward solving the problem themselves. " +
			"Ask what they have tried, hint at the right data structure or pattern, and never hand over a full solution unless asked twice."
	case IntentConceptExplanation:
		return base + "Explain the concept clearly with a small concrete example. " +
			"Match the depth to the user's level and finish with a one-sentence summary."
	case IntentDebugging:
		return base + "Help the user find the bug. Ask for the error message and the relevant code, " +
			"walk through likely causes one at a time, and teach the debugging technique as you go."
	case IntentCareerAdvice:
		return base + "Give practical, honest interview and career preparation advice for software engineering roles, " +
			"grounded in the user's current practice history."
	case IntentCodeReview:
		return base + "Review the user's code. Comment on correctness first, then complexity, then readability. " +
			"Be specific and point to lines rather than generalities."
	case IntentPracticeRequest:
		return base + "Recommend what the user should practice next and explain briefly why each suggestion targets a gap."
	default:
		return base + "Answer the user's question helpfully and concisely."
	}
}

// cannedReply is the deterministic response used when the completion API
// is unavailable or fails.
func cannedReply(intent Intent) string {
	switch intent {
	case IntentProblemHelp:
		return "Here's a checklist for working through a problem:\n" +
			"1. Restate the problem in your own words and identify inputs and outputs.\n" +
			"2. Work a small example by hand.\n" +
			"3. Pick a candidate data structure (array, hash map, stack, heap) and sketch the algorithm.\n" +
			"4. Estimate time and space complexity before coding.\n" +
			"5. Code it, then test with the example plus an edge case (empty input, single element, duplicates)."
	case IntentConceptExplanation:
		return "I can't reach the explanation model right now, but a good way to learn any concept: " +
			"find its simplest definition, work one tiny example by hand, then solve two easy problems that use it. " +
			"Check the problem list below for practice that matches this topic."
	case IntentDebugging:
		return "Here's a debugging checklist:\n" +
			"1. Read the exact error message and the line it points to.\n" +
			"2. Check your loop bounds and off-by-one conditions.\n" +
			"3. Print or log intermediate values right before the failure point.\n" +
			"4. Verify assumptions about input: empty, null, or unexpected types.\n" +
			"5. Reduce the failing case to the smallest input that still breaks."
	case IntentCareerAdvice:
		return "General interview preparation advice: keep a steady practice schedule (3-5 problems a week), " +
			"cover arrays, strings, hash maps, trees and graphs before anything exotic, " +
			"practice explaining your approach out loud, and do at least two timed mock interviews before the real one."
	case IntentCodeReview:
		return "I can't run a detailed review right now. Self-review checklist: " +
			"does every branch get exercised by a test? Are names saying what things are, not how? " +
			"Is there repeated code that wants a helper? What's the complexity, and can a hash map remove a nested loop?"
	case IntentPracticeRequest:
		return "Based on your progress, the problems below target the topics where you have the most room to grow. " +
			"Start with the easiest and aim for three this week."
	default:
		return "I'm currently running without my reasoning model, so I can only give limited answers. " +
			"Try asking about a specific problem, topic, or error message and I'll do what I can."
	}
}

// followUpQuestions are fixed per intent, three entries each.
var followUpQuestions = map[Intent][]string{
	IntentProblemHelp: {
		"What approach have you tried so far?",
		"Would a hint about the data structure help?",
		"Do you want to see a similar but easier problem first?",
	},
	IntentConceptExplanation: {
		"Would an example help make this concrete?",
		"Should I compare this with a related concept?",
		"Do you want a practice problem that uses this?",
	},
	IntentDebugging: {
		"Can you share the exact error message?",
		"What input triggers the failure?",
		"Have you checked the loop boundary conditions?",
	},
	IntentCareerAdvice: {
		"What kind of role are you targeting?",
		"When is your next interview?",
		"Do you want a weekly preparation plan?",
	},
	IntentCodeReview: {
		"Which part of the code worries you most?",
		"What is the expected time complexity?",
		"Have you tested the edge cases?",
	},
	IntentPracticeRequest: {
		"Do you want to focus on your weakest topic?",
		"Easy warm-ups or a challenge?",
		"How much time do you have this week?",
	},
	IntentGeneralQuestion: {
		"Is there a specific problem you're working on?",
		"Would you like topic recommendations?",
		"Do you want to start a guided tutoring session?",
	},
}

// actionItemsFor derives the typed action items attached to a reply.
func actionItemsFor(intent Intent, level Level) []ActionItem {
	switch intent {
	case IntentDebugging:
		return []ActionItem{
			{Type: "debug", Description: "Reproduce the failure with the smallest possible input", Priority: "high"},
			{Type: "practice", Description: "Re-solve the problem from scratch once fixed", Priority: "medium"},
		}
	case IntentCareerAdvice:
		return []ActionItem{
			{Type: "study", Description: "Schedule a timed mock interview this week", Priority: "high"},
			{Type: "practice", Description: "Solve one problem per core topic under 30 minutes", Priority: "medium"},
		}
	case IntentPracticeRequest:
		return []ActionItem{
			{Type: "practice", Description: "Complete three of the suggested problems this week", Priority: "high"},
		}
	case IntentConceptExplanation:
		return []ActionItem{
			{Type: "study", Description: "Write a summary of the concept in your own words", Priority: "medium"},
			{Type: "practice", Description: "Solve one related problem while it's fresh", Priority: "medium"},
		}
	default:
		if level == LevelBeginner {
			return []ActionItem{
				{Type: "practice", Description: "Keep a daily streak of at least one easy problem", Priority: "medium"},
			}
		}
		return nil
	}
}
