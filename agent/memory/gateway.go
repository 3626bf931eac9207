// Package memory implements the long-term memory boundary of the agent.
// Everything here is fail-soft: a dead memory backend degrades to an
// uncontextualized answer, never to a failed request.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kritsada/careline/pkg/memoryapi"
)

const (
	retrieveTopK    = 3
	namespaceFormat = "support/customer/%s/%s"
)

// Strategy kinds mirror the memory service's partitioning: preferences the
// customer has expressed, and semantic facts distilled from conversations.
var strategyKinds = []string{"preference", "semantic"}

// Store is the remote memory capability the gateway talks to.
type Store interface {
	Retrieve(ctx context.Context, namespace, query string, topK int) ([]memoryapi.Record, error)
	AppendEvent(ctx context.Context, actorID, sessionID string, messages []memoryapi.EventMessage) error
}

// InteractionLog is the relational audit trail for completed exchanges.
type InteractionLog interface {
	AppendPair(ctx context.Context, actorID, sessionID, userText, assistantText string) error
}

// Gateway implements contract.MemoryGateway over a memory service and an
// optional interaction log.
type Gateway struct {
	store Store
	ilog  InteractionLog
}

func NewGateway(store Store, ilog InteractionLog) *Gateway {
	return &Gateway{store: store, ilog: ilog}
}

// RetrieveContext queries every strategy namespace for the actor and joins
// the tagged snippets into one block. It never fails; any backend trouble is
// logged and collapses to an empty string.
func (g *Gateway) RetrieveContext(ctx context.Context, actorID, queryText string) string {
	if g.store == nil {
		return ""
	}

	var snippets []string
	for _, kind := range strategyKinds {
		namespace := fmt.Sprintf(namespaceFormat, actorID, kind)
		records, err := g.store.Retrieve(ctx, namespace, queryText, retrieveTopK)
		if err != nil {
			log.Warn().Err(err).Str("namespace", namespace).Msg("memory retrieval failed")
			continue
		}
		for _, rec := range records {
			text := strings.TrimSpace(rec.Text)
			if text == "" {
				continue
			}
			snippets = append(snippets, fmt.Sprintf("[%s] %s", strings.ToUpper(kind), text))
		}
	}

	if len(snippets) == 0 {
		return ""
	}
	log.Info().Int("count", len(snippets)).Str("actor_id", actorID).Msg("retrieved customer context")
	return strings.Join(snippets, "\n")
}

// SaveInteraction appends the USER/ASSISTANT pair to the memory service and
// the interaction log. Single attempt each, errors swallowed: by the time
// this runs the answer is already on its way to the client.
func (g *Gateway) SaveInteraction(ctx context.Context, actorID, sessionID, userText, assistantText string) {
	if strings.TrimSpace(userText) == "" || strings.TrimSpace(assistantText) == "" {
		return
	}

	if g.store != nil {
		err := g.store.AppendEvent(ctx, actorID, sessionID, []memoryapi.EventMessage{
			{Role: "USER", Text: userText},
			{Role: "ASSISTANT", Text: assistantText},
		})
		if err != nil {
			log.Warn().Err(err).Str("actor_id", actorID).Msg("failed to save interaction to memory")
		}
	}

	if g.ilog != nil {
		if err := g.ilog.AppendPair(ctx, actorID, sessionID, userText, assistantText); err != nil {
			log.Warn().Err(err).Str("actor_id", actorID).Msg("failed to log interaction")
		}
	}
}
