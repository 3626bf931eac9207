package nodes

import (
	"context"
	"fmt"

	contractx "github.com/kritsada/careline/agent/contract"
)

// ReadMemory retrieves long-term customer context. The gateway contract
// guarantees this cannot fail the pipeline.
func ReadMemory(ctx context.Context, in *GraphState, gateway contractx.MemoryGateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if gateway != nil {
		in.MemoryContext = gateway.RetrieveContext(ctx, in.ActorID, in.Prompt)
	}
	return in, nil
}
