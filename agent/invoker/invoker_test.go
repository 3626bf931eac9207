package invoker

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/kritsada/careline/agent/contract"
	toolx "github.com/kritsada/careline/agent/tool"
)

// fakeToolCallingModel replays canned turns. Each turn is a list of chunks;
// Generate concatenates them, Stream delivers them one by one.
type fakeToolCallingModel struct {
	turns [][]*schema.Message
	err   error

	idx           int
	generateCalls int
	streamCalls   int
	lastInput     []*schema.Message
}

func (f *fakeToolCallingModel) next() ([]*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.turns) {
		return nil, errors.New("no fake response left")
	}
	turn := f.turns[f.idx]
	f.idx++
	return turn, nil
}

func (f *fakeToolCallingModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.generateCalls++
	f.lastInput = input
	turn, err := f.next()
	if err != nil {
		return nil, err
	}
	return schema.ConcatMessages(turn)
}

func (f *fakeToolCallingModel) Stream(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.streamCalls++
	f.lastInput = input
	turn, err := f.next()
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray(turn), nil
}

func (f *fakeToolCallingModel) WithTools([]*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func assistantTurn(fragments ...string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(fragments))
	for _, fragment := range fragments {
		msgs = append(msgs, &schema.Message{Role: schema.Assistant, Content: fragment})
	}
	return msgs
}

func toolCallTurn(id, name, args string) []*schema.Message {
	return []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       id,
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}}
}

func testCatalog(t *testing.T) *toolx.Catalog {
	t.Helper()

	catalog := toolx.NewCatalog()
	err := catalog.Register(toolx.Descriptor{
		Name: "lookup",
		Desc: "Looks things up.",
		Schema: toolx.InputSchema{
			Properties: map[string]toolx.Property{
				"key": {Type: "string", Desc: "lookup key"},
			},
			Required: []string{"key"},
		},
	}, func(_ context.Context, args map[string]any) (string, error) {
		return "value for " + args["key"].(string), nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return catalog
}

func TestRunPlainAnswer(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{
		assistantTurn("All set, happy to help."),
	}}
	iv, err := New(fake, testCatalog(t), "system prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := iv.Run(context.Background(), nil, "hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Text != "All set, happy to help." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.Truncated {
		t.Fatal("unexpected truncation")
	}
	if res.Turns != 1 {
		t.Fatalf("expected 1 turn, got %d", res.Turns)
	}
}

func TestRunPrependsSystemAndHistory(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{assistantTurn("ok")}}
	iv, err := New(fake, testCatalog(t), "be helpful")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	history := []*schema.Message{
		schema.UserMessage("earlier question"),
		schema.AssistantMessage("earlier answer", nil),
	}
	if _, err := iv.Run(context.Background(), history, "new question"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	in := fake.lastInput
	if len(in) != 4 {
		t.Fatalf("expected 4 input messages, got %d", len(in))
	}
	if in[0].Role != schema.System || in[0].Content != "be helpful" {
		t.Fatalf("unexpected system message: %+v", in[0])
	}
	if in[1].Content != "earlier question" || in[2].Content != "earlier answer" {
		t.Fatal("history must be carried between system and user messages")
	}
	if in[3].Role != schema.User || in[3].Content != "new question" {
		t.Fatalf("unexpected user message: %+v", in[3])
	}
}

func TestRunExecutesToolCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{
		toolCallTurn("call-1", "lookup", `{"key":"warranty"}`),
		assistantTurn("Found: value for warranty"),
	}}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := iv.Run(context.Background(), nil, "look up warranty")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Text != "Found: value for warranty" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.Turns != 2 {
		t.Fatalf("expected 2 turns, got %d", res.Turns)
	}

	// Second round-trip must carry the assistant tool-call message and the
	// tool result.
	in := fake.lastInput
	last := in[len(in)-1]
	if last.Role != schema.Tool || last.ToolCallID != "call-1" {
		t.Fatalf("unexpected tool message: %+v", last)
	}
	if last.Content != "value for warranty" {
		t.Fatalf("unexpected tool content: %q", last.Content)
	}
}

func TestRunUnknownToolFeedsErrorBack(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{
		toolCallTurn("call-1", "no_such_tool", `{}`),
		assistantTurn("Sorry, I could not do that."),
	}}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := iv.Run(context.Background(), nil, "try something")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Text != "Sorry, I could not do that." {
		t.Fatalf("unexpected text: %q", res.Text)
	}

	in := fake.lastInput
	last := in[len(in)-1]
	if last.Role != schema.Tool || !strings.Contains(last.Content, "unknown tool") {
		t.Fatalf("expected unknown tool content, got: %+v", last)
	}
}

func TestRunInvalidArgumentsFeedBack(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{
		toolCallTurn("call-1", "lookup", `{not json`),
		assistantTurn("done"),
	}}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := iv.Run(context.Background(), nil, "x"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	in := fake.lastInput
	last := in[len(in)-1]
	if !strings.Contains(last.Content, "Invalid arguments for tool lookup") {
		t.Fatalf("unexpected tool content: %q", last.Content)
	}
}

func TestRunTurnBudgetExhaustedTruncates(t *testing.T) {
	t.Parallel()

	turns := make([][]*schema.Message, 0, 3)
	for i := 0; i < 3; i++ {
		turns = append(turns, toolCallTurn("call", "lookup", `{"key":"k"}`))
	}
	fake := &fakeToolCallingModel{turns: turns}
	iv, err := New(fake, testCatalog(t), "system", WithMaxTurns(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := iv.Run(context.Background(), nil, "loop forever")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Truncated {
		t.Fatal("expected truncated result")
	}
	if res.Turns != 3 {
		t.Fatalf("expected 3 turns, got %d", res.Turns)
	}
	if fake.generateCalls != 3 {
		t.Fatalf("expected exactly 3 model calls, got %d", fake.generateCalls)
	}
}

func TestRunModelErrorWrapped(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("backend 500")}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = iv.Run(context.Background(), nil, "hello")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestRunStreamDeliversFragmentsInOrder(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{
		assistantTurn("Hello", ", ", "world."),
	}}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var fragments []string
	res, err := iv.RunStream(context.Background(), nil, "hi", func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("RunStream() error = %v", err)
	}

	if len(fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(fragments))
	}
	if strings.Join(fragments, "") != res.Text {
		t.Fatalf("fragment concat %q != result text %q", strings.Join(fragments, ""), res.Text)
	}
	if res.Text != "Hello, world." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestStreamConcatEqualsSyncResult(t *testing.T) {
	t.Parallel()

	turns := func() [][]*schema.Message {
		return [][]*schema.Message{
			toolCallTurn("call-1", "lookup", `{"key":"spec"}`),
			assistantTurn("Based on the spec sheet, ", "everything checks out."),
		}
	}

	syncFake := &fakeToolCallingModel{turns: turns()}
	syncIv, err := New(syncFake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	syncRes, err := syncIv.Run(context.Background(), nil, "check the spec sheet")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	streamFake := &fakeToolCallingModel{turns: turns()}
	streamIv, err := New(streamFake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var streamed strings.Builder
	streamRes, err := streamIv.RunStream(context.Background(), nil, "check the spec sheet", func(fragment string) error {
		streamed.WriteString(fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("RunStream() error = %v", err)
	}

	if streamed.String() != syncRes.Text {
		t.Fatalf("stream concat %q != sync text %q", streamed.String(), syncRes.Text)
	}
	if streamRes.Text != syncRes.Text {
		t.Fatalf("stream result %q != sync result %q", streamRes.Text, syncRes.Text)
	}
}

func TestRunStreamAbortedConsumerStopsLoop(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{
		assistantTurn("first ", "second ", "third"),
		assistantTurn("never reached"),
	}}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	delivered := 0
	_, err = iv.RunStream(context.Background(), nil, "hi", func(string) error {
		delivered++
		if delivered == 2 {
			return errors.New("client hung up")
		}
		return nil
	})
	if !errors.Is(err, ErrStreamAborted) {
		t.Fatalf("expected ErrStreamAborted, got %v", err)
	}
	if fake.streamCalls != 1 {
		t.Fatalf("expected no further model calls, got %d", fake.streamCalls)
	}
}

func TestRunCanceledContextStopsBeforeModelCall(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{turns: [][]*schema.Message{assistantTurn("x")}}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = iv.Run(ctx, nil, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fake.generateCalls != 0 {
		t.Fatalf("expected no model calls after cancellation, got %d", fake.generateCalls)
	}
}

func TestRunStreamRequiresSink(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{}
	iv, err := New(fake, testCatalog(t), "system")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = iv.RunStream(context.Background(), nil, "hi", nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
