package nodes

import (
	"context"
	"fmt"

	contractx "github.com/kritsada/careline/agent/contract"
)

// FinalizeReply shapes the terminal result. An empty reply from a
// non-truncated run means the model produced nothing usable.
func FinalizeReply(_ context.Context, in *GraphState) (*GraphOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Agent.Text == "" && !in.Agent.Truncated {
		return nil, fmt.Errorf("%w: model returned no content", contractx.ErrModelInvoke)
	}
	return &GraphOutput{
		Result: contractx.InvokeResult{
			Message:   in.Agent.Text,
			SessionID: in.SessionID,
			Truncated: in.Agent.Truncated,
		},
	}, nil
}
