package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

func newTestHistory(t *testing.T, opts ...HistoryOption) *RedisHistory {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisHistory(client, opts...)
}

func TestHistoryAppendThenRecent(t *testing.T) {
	t.Parallel()

	h := newTestHistory(t)
	ctx := context.Background()

	err := h.Append(ctx, "cust-1", "sess-1", []*schema.Message{
		schema.UserMessage("first question"),
		schema.AssistantMessage("first answer", nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := h.Recent(ctx, "cust-1", "sess-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.User || msgs[0].Content != "first question" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != schema.Assistant || msgs[1].Content != "first answer" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
}

func TestHistorySessionsIsolated(t *testing.T) {
	t.Parallel()

	h := newTestHistory(t)
	ctx := context.Background()

	if err := h.Append(ctx, "cust-1", "sess-a", []*schema.Message{schema.UserMessage("a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Append(ctx, "cust-1", "sess-b", []*schema.Message{schema.UserMessage("b")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := h.Recent(ctx, "cust-1", "sess-a", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "a" {
		t.Fatalf("session isolation broken: %+v", msgs)
	}
}

func TestHistoryTrimsToCap(t *testing.T) {
	t.Parallel()

	h := newTestHistory(t, WithHistoryCap(4))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := h.Append(ctx, "cust-1", "sess-1", []*schema.Message{
			schema.UserMessage("q"),
			schema.AssistantMessage("a", nil),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	msgs, err := h.Recent(ctx, "cust-1", "sess-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected trim to 4 messages, got %d", len(msgs))
	}
}

func TestHistoryRecentLimitTakesNewest(t *testing.T) {
	t.Parallel()

	h := newTestHistory(t)
	ctx := context.Background()

	err := h.Append(ctx, "cust-1", "sess-1", []*schema.Message{
		schema.UserMessage("old"),
		schema.AssistantMessage("older answer", nil),
		schema.UserMessage("new"),
		schema.AssistantMessage("new answer", nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := h.Recent(ctx, "cust-1", "sess-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "new" || msgs[1].Content != "new answer" {
		t.Fatalf("expected newest messages, got %+v", msgs)
	}
}

func TestHistoryEmptySession(t *testing.T) {
	t.Parallel()

	h := newTestHistory(t)
	msgs, err := h.Recent(context.Background(), "cust-1", "missing", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(msgs))
	}
}
