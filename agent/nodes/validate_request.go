package nodes

import (
	"strings"

	contractx "github.com/kritsada/careline/agent/contract"
)

// DefaultActorID identifies callers that did not supply an actor id.
const DefaultActorID = "default_customer"

// ValidateRequest rejects empty prompts before any side effect runs and
// resolves the caller's identity and session.
func ValidateRequest(in GraphInput, newSessionID func() string) (*GraphState, error) {
	prompt := strings.TrimSpace(in.Request.Prompt)
	if prompt == "" {
		return nil, contractx.ErrPromptMissing
	}

	actorID := strings.TrimSpace(in.Request.ActorID)
	if actorID == "" {
		actorID = DefaultActorID
	}

	sessionID := strings.TrimSpace(in.Request.SessionID)
	if sessionID == "" {
		sessionID = newSessionID()
	}

	return &GraphState{
		Prompt:    prompt,
		ActorID:   actorID,
		SessionID: sessionID,
		Sink:      in.Sink,
	}, nil
}
