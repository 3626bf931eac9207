package nodes

import (
	"context"
	"fmt"

	contractx "github.com/kritsada/careline/agent/contract"
)

// InvokeAgent runs the tool-calling loop. A non-nil sink on the state routes
// the call through the streaming path so fragments reach the client as the
// model emits them.
func InvokeAgent(ctx context.Context, in *GraphState, inv contractx.Invoker) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: invoker is not configured", contractx.ErrValidation)
	}

	var (
		res contractx.AgentResult
		err error
	)
	if in.Sink != nil {
		res, err = inv.RunStream(ctx, in.History, in.EnhancedPrompt, in.Sink)
	} else {
		res, err = inv.Run(ctx, in.History, in.EnhancedPrompt)
	}
	if err != nil {
		return nil, err
	}

	in.Agent = res
	return in, nil
}
