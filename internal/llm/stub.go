package llm

import "context"

// Stub is the completer used when no API key is configured. Every call
// fails with ErrNoCompleter so callers fall through to their canned
// responses, keeping degraded behavior deterministic.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Available() bool { return false }

func (s *Stub) Complete(_ context.Context, _ string, _ []Turn, _ Options) (string, error) {
	return "", ErrNoCompleter
}

func (s *Stub) Close() {}
