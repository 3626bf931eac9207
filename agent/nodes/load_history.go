package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/kritsada/careline/agent/contract"
	sessionx "github.com/kritsada/careline/agent/session"
)

// LoadHistory pulls the session's recent turns and applies the context
// window. A broken history store degrades to a fresh conversation.
func LoadHistory(ctx context.Context, in *GraphState, store contractx.HistoryStore, windowPairs int) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if store == nil {
		return in, nil
	}

	msgs, err := store.Recent(ctx, in.ActorID, in.SessionID, 2*windowPairs)
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("history load failed")
		return in, nil
	}
	in.History = sessionx.Window(msgs, windowPairs)
	return in, nil
}
