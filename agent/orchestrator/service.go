package orchestrator

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/kritsada/careline/agent/contract"
	nodex "github.com/kritsada/careline/agent/nodes"
	sessionx "github.com/kritsada/careline/agent/session"
)

// Orchestrator owns the per-request pipeline. Handle and HandleStream run
// the exact same graph; the streaming variant only differs in the sink it
// threads through to the invoker.
type Orchestrator struct {
	invoker contractx.Invoker
	memory  contractx.MemoryGateway
	history contractx.HistoryStore

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	windowPairs  int
	newSessionID func() string
}

type Option func(*Orchestrator)

// WithWindowPairs caps how many recent user/assistant pairs are replayed to
// the model on each invocation.
func WithWindowPairs(pairs int) Option {
	return func(o *Orchestrator) {
		if pairs > 0 {
			o.windowPairs = pairs
		}
	}
}

// WithSessionIDFunc overrides session id generation, for tests.
func WithSessionIDFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newSessionID = fn
		}
	}
}

// New wires the pipeline. The memory gateway and history store may be nil;
// the pipeline then runs stateless. The invoker is mandatory.
func New(inv contractx.Invoker, memory contractx.MemoryGateway, history contractx.HistoryStore, opts ...Option) (*Orchestrator, error) {
	if inv == nil {
		return nil, errors.New("invoker is required")
	}

	o := &Orchestrator{
		invoker:      inv,
		memory:       memory,
		history:      history,
		windowPairs:  sessionx.DefaultWindowPairs,
		newSessionID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileInvokeGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle runs one sync invocation and returns the complete reply.
func (o *Orchestrator) Handle(ctx context.Context, req contractx.InvokeRequest) (contractx.InvokeResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Request: req})
	if err != nil {
		return contractx.InvokeResult{}, err
	}
	return out.Result, nil
}

// HandleStream runs one invocation, pushing each assistant text fragment
// through sink as the model produces it. The returned result's Message is
// the concatenation of everything sink received.
func (o *Orchestrator) HandleStream(ctx context.Context, req contractx.InvokeRequest, sink contractx.FragmentSink) (contractx.InvokeResult, error) {
	if sink == nil {
		return o.Handle(ctx, req)
	}
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Request: req, Sink: sink})
	if err != nil {
		return contractx.InvokeResult{}, err
	}
	return out.Result, nil
}
