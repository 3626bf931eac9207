package nodes

import (
	"context"
	"fmt"

	contractx "github.com/kritsada/careline/agent/contract"
	sessionx "github.com/kritsada/careline/agent/session"
)

// BuildPrompt folds the retrieved customer context into the text handed to
// the model. The original prompt in state stays untouched.
func BuildPrompt(_ context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.EnhancedPrompt = sessionx.BuildEnhancedPrompt(in.MemoryContext, in.Prompt)
	return in, nil
}
