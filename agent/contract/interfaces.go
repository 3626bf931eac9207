package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// MemoryGateway is the long-term memory boundary. Both operations are
// best-effort: retrieval returns an empty string instead of failing, and a
// save failure must never alter a result that was already computed.
type MemoryGateway interface {
	RetrieveContext(ctx context.Context, actorID, queryText string) string
	SaveInteraction(ctx context.Context, actorID, sessionID, userText, assistantText string)
}

// HistoryStore keeps the client-facing conversation history per
// (actor, session). Recent returns at most limit messages, oldest first.
type HistoryStore interface {
	Recent(ctx context.Context, actorID, sessionID string, limit int) ([]*schema.Message, error)
	Append(ctx context.Context, actorID, sessionID string, msgs []*schema.Message) error
}

// Invoker drives the bounded tool-calling loop against the model backend.
// Run drives it to completion and returns one final result; RunStream emits
// each assistant text fragment through sink as it is produced. For the same
// inputs the concatenation of streamed fragments equals the sync result.
type Invoker interface {
	Run(ctx context.Context, history []*schema.Message, prompt string) (AgentResult, error)
	RunStream(ctx context.Context, history []*schema.Message, prompt string, sink FragmentSink) (AgentResult, error)
}

// AgentResult is the invoker's terminal state.
type AgentResult struct {
	Text      string
	Truncated bool
	Turns     int
}
