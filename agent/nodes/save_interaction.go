package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/kritsada/careline/agent/contract"
)

// SaveInteraction persists the exchange after the answer is complete. The
// ORIGINAL prompt is stored, never the enhanced one, and nothing here can
// change or fail the reply.
func SaveInteraction(ctx context.Context, in *GraphState, gateway contractx.MemoryGateway, store contractx.HistoryStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if gateway != nil {
		gateway.SaveInteraction(ctx, in.ActorID, in.SessionID, in.Prompt, in.Agent.Text)
	}

	if store != nil && in.Agent.Text != "" {
		msgs := []*schema.Message{
			schema.UserMessage(in.Prompt),
			schema.AssistantMessage(in.Agent.Text, nil),
		}
		if err := store.Append(ctx, in.ActorID, in.SessionID, msgs); err != nil {
			log.Warn().Err(err).Str("session_id", in.SessionID).Msg("history append failed")
		}
	}

	return in, nil
}
