// Package invoker drives the bounded tool-calling loop against the model
// backend. One Invoker serves many concurrent requests; all per-request
// state lives on the stack of Run/RunStream.
package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/kritsada/careline/agent/contract"
	toolx "github.com/kritsada/careline/agent/tool"
)

// DefaultMaxTurns bounds model round-trips per invocation. Exhausting it is
// a truncated result, not an error.
const DefaultMaxTurns = 10

// ErrStreamAborted reports that the stream consumer stopped accepting
// fragments; the loop halts without reaching a terminal state.
var ErrStreamAborted = errors.New("stream consumer gone")

type Invoker struct {
	model    model.ToolCallingChatModel
	catalog  *toolx.Catalog
	system   string
	maxTurns int
}

type Option func(*Invoker)

func WithMaxTurns(n int) Option {
	return func(iv *Invoker) {
		if n > 0 {
			iv.maxTurns = n
		}
	}
}

// New binds the catalog's tools to the chat model and returns an invoker
// ready for concurrent use.
func New(chatModel model.ToolCallingChatModel, catalog *toolx.Catalog, systemPrompt string, opts ...Option) (*Invoker, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: tool catalog is required", contractx.ErrValidation)
	}

	bound := chatModel
	if infos := catalog.Infos(); len(infos) > 0 {
		var err error
		bound, err = chatModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
	}

	iv := &Invoker{
		model:    bound,
		catalog:  catalog,
		system:   systemPrompt,
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(iv)
		}
	}
	return iv, nil
}

// Run drives the loop to completion and returns one final result.
func (iv *Invoker) Run(ctx context.Context, history []*schema.Message, prompt string) (contractx.AgentResult, error) {
	return iv.run(ctx, history, prompt, nil)
}

// RunStream drives the same loop but hands every assistant content delta to
// sink in production order. The concatenation of delivered fragments equals
// Run's text for the same inputs.
func (iv *Invoker) RunStream(ctx context.Context, history []*schema.Message, prompt string, sink contractx.FragmentSink) (contractx.AgentResult, error) {
	if sink == nil {
		return contractx.AgentResult{}, fmt.Errorf("%w: fragment sink is required", contractx.ErrValidation)
	}
	return iv.run(ctx, history, prompt, sink)
}

func (iv *Invoker) run(ctx context.Context, history []*schema.Message, prompt string, sink contractx.FragmentSink) (contractx.AgentResult, error) {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(iv.system))
	msgs = append(msgs, history...)
	msgs = append(msgs, schema.UserMessage(prompt))

	var text strings.Builder
	var res contractx.AgentResult

	for turn := 1; turn <= iv.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Turns = turn

		var (
			out *schema.Message
			err error
		)
		if sink == nil {
			out, err = iv.model.Generate(ctx, msgs)
		} else {
			out, err = iv.streamTurn(ctx, msgs, sink, &text)
		}
		if err != nil {
			if errors.Is(err, ErrStreamAborted) || errors.Is(err, context.Canceled) {
				return res, err
			}
			return res, fmt.Errorf("%w: turn=%d: %v", contractx.ErrModelInvoke, turn, err)
		}
		if out == nil {
			return res, fmt.Errorf("%w: turn=%d: empty model response", contractx.ErrModelInvoke, turn)
		}

		if sink == nil && out.Content != "" {
			text.WriteString(out.Content)
		}

		if len(out.ToolCalls) == 0 {
			res.Text = text.String()
			return res, nil
		}

		// Cancellation observed between the round-trip and dispatch means
		// no tool may run anymore.
		if err := ctx.Err(); err != nil {
			return res, err
		}

		msgs = append(msgs, out)
		msgs = append(msgs, iv.dispatch(ctx, out.ToolCalls)...)
	}

	log.Warn().Int("max_turns", iv.maxTurns).Msg("turn budget exhausted, returning partial text")
	res.Text = text.String()
	res.Truncated = true
	return res, nil
}

// streamTurn consumes one model round-trip as a stream, forwarding content
// deltas and reassembling the full message to recover tool calls.
func (iv *Invoker) streamTurn(ctx context.Context, msgs []*schema.Message, sink contractx.FragmentSink, text *strings.Builder) (*schema.Message, error) {
	reader, err := iv.model.Stream(ctx, msgs)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var chunks []*schema.Message
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if chunk.Content == "" {
			continue
		}
		text.WriteString(chunk.Content)
		if err := sink(chunk.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStreamAborted, err)
		}
	}

	if len(chunks) == 0 {
		return nil, errors.New("model stream produced no chunks")
	}
	return schema.ConcatMessages(chunks)
}

// dispatch resolves every requested call through the catalog. Calls within
// one round are independent, so multiple calls run concurrently with results
// joined back in request order. Tool failures feed the model textual error
// content; they never abort the loop.
func (iv *Invoker) dispatch(ctx context.Context, calls []schema.ToolCall) []*schema.Message {
	results := make([]*schema.Message, len(calls))
	if len(calls) == 1 {
		results[0] = iv.dispatchOne(ctx, calls[0])
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call schema.ToolCall) {
			defer wg.Done()
			results[i] = iv.dispatchOne(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (iv *Invoker) dispatchOne(ctx context.Context, call schema.ToolCall) *schema.Message {
	name := strings.TrimSpace(call.Function.Name)

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return schema.ToolMessage(fmt.Sprintf("Invalid arguments for tool %s: %s", name, err), call.ID)
		}
	}

	result, err := iv.catalog.Invoke(ctx, name, args)
	if err != nil {
		// Unknown tool or schema violation: the model gets to read about it
		// and try again within the remaining budget.
		return schema.ToolMessage(err.Error(), call.ID)
	}
	return schema.ToolMessage(result.Content, call.ID)
}
