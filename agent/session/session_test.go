package session

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestBuildEnhancedPromptWithContext(t *testing.T) {
	t.Parallel()

	got := BuildEnhancedPrompt("[PREFERENCE] Prefers email.", "Where is my order?")
	want := "Customer Context:\n[PREFERENCE] Prefers email.\n\nWhere is my order?"
	if got != want {
		t.Fatalf("unexpected prompt:\n got: %q\nwant: %q", got, want)
	}
}

func TestBuildEnhancedPromptWithoutContext(t *testing.T) {
	t.Parallel()

	for _, ctx := range []string{"", "   ", "\n"} {
		if got := BuildEnhancedPrompt(ctx, "plain question"); got != "plain question" {
			t.Fatalf("context %q: expected passthrough, got %q", ctx, got)
		}
	}
}

func TestBuildEnhancedPromptPreservesUserText(t *testing.T) {
	t.Parallel()

	user := "  padded question  "
	got := BuildEnhancedPrompt("some context", user)
	if !strings.HasSuffix(got, user) {
		t.Fatalf("user text must be carried verbatim, got %q", got)
	}
}

func TestWindowKeepsRecentPairs(t *testing.T) {
	t.Parallel()

	msgs := make([]*schema.Message, 0, 30)
	for i := 0; i < 15; i++ {
		msgs = append(msgs, schema.UserMessage("q"), schema.AssistantMessage("a", nil))
	}

	windowed := Window(msgs, 10)
	if len(windowed) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(windowed))
	}
	if windowed[0] != msgs[10] {
		t.Fatal("window must keep the most recent messages")
	}
}

func TestWindowShortHistoryUntouched(t *testing.T) {
	t.Parallel()

	msgs := []*schema.Message{schema.UserMessage("q"), schema.AssistantMessage("a", nil)}
	windowed := Window(msgs, 10)
	if len(windowed) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(windowed))
	}
}

func TestWindowZeroPairsUsesDefault(t *testing.T) {
	t.Parallel()

	msgs := make([]*schema.Message, 0, 50)
	for i := 0; i < 25; i++ {
		msgs = append(msgs, schema.UserMessage("q"), schema.AssistantMessage("a", nil))
	}

	windowed := Window(msgs, 0)
	if len(windowed) != 2*DefaultWindowPairs {
		t.Fatalf("expected %d messages, got %d", 2*DefaultWindowPairs, len(windowed))
	}
}
