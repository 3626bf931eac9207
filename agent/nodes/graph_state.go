package nodes

import (
	"github.com/cloudwego/eino/schema"

	contractx "github.com/kritsada/careline/agent/contract"
)

// GraphInput enters the orchestration graph once per HTTP invocation.
// A nil Sink selects sync mode.
type GraphInput struct {
	Request contractx.InvokeRequest
	Sink    contractx.FragmentSink
}

// GraphOutput leaves the graph with the materialized result.
type GraphOutput struct {
	Result contractx.InvokeResult
}

// GraphState is threaded through the pipeline nodes. Prompt always holds the
// ORIGINAL user text; the enhanced prompt exists only for the model call and
// never reaches the memory store.
type GraphState struct {
	Prompt    string
	ActorID   string
	SessionID string
	Sink      contractx.FragmentSink

	History        []*schema.Message
	MemoryContext  string
	EnhancedPrompt string

	Agent contractx.AgentResult
}
