// Package llm wraps the external completion API behind a capability
// interface so the orchestration layer is built once against either the
// real Gemini client or a deterministic local stand-in.
package llm

import (
	"context"
	"errors"
)

// ErrNoCompleter is returned by the stub completer. Callers treat it like
// any other completion failure and take their canned-response paths.
var ErrNoCompleter = errors.New("no completion API configured")

// Turn is one prior message of a conversation, oldest first.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

type Options struct {
	Temperature float32
	MaxTokens   int32
	JSONMode    bool // request a JSON object response
}

// Completer is the completion API capability. Implementations must not
// retry: a failed call degrades to canned content at the call site.
type Completer interface {
	// Available reports whether calls can reach a real model. Callers may
	// use it to skip a completion that would certainly fail.
	Available() bool
	Complete(ctx context.Context, systemPrompt string, turns []Turn, opts Options) (string, error)
	Close()
}

// New selects the implementation once at construction: the Gemini client
// when an API key is configured, the deterministic stub otherwise.
func New(apiKey string) (Completer, error) {
	if apiKey == "" {
		return NewStub(), nil
	}
	return NewGemini(apiKey)
}
