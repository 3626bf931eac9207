package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/kritsada/careline/agent/nodes"
)

func (o *Orchestrator) compileInvokeGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.newSessionID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_history",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadHistory(ctx, in, o.history, o.windowPairs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_history: %w", err)
	}

	if err := graph.AddLambdaNode("read_memory",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ReadMemory(ctx, in, o.memory)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node read_memory: %w", err)
	}

	if err := graph.AddLambdaNode("build_prompt",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildPrompt(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_prompt: %w", err)
	}

	if err := graph.AddLambdaNode("invoke_agent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InvokeAgent(ctx, in, o.invoker)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node invoke_agent: %w", err)
	}

	if err := graph.AddLambdaNode("save_interaction",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveInteraction(ctx, in, o.memory, o.history)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_interaction: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			out, err := nodex.FinalizeReply(ctx, in)
			if err != nil {
				return nodex.GraphOutput{}, err
			}
			return *out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_history"},
		{"load_history", "read_memory"},
		{"read_memory", "build_prompt"},
		{"build_prompt", "invoke_agent"},
		{"invoke_agent", "save_interaction"},
		{"save_interaction", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.invoke"))
	if err != nil {
		return nil, fmt.Errorf("compile invoke graph: %w", err)
	}
	return runner, nil
}
