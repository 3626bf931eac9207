package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

const (
	defaultHistoryPrefix = "careline:history"
	defaultHistoryTTL    = 24 * time.Hour
	defaultHistoryCap    = 4 * DefaultWindowPairs // messages kept per session
)

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true" required:"true"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	DB       int           `envconfig:"DB" split_words:"true" default:"0"`
	TTL      time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// RedisHistory keeps per-session conversation history in a capped Redis
// list. It implements contract.HistoryStore.
type RedisHistory struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	cap    int
}

type HistoryOption func(*RedisHistory)

func WithHistoryPrefix(prefix string) HistoryOption {
	return func(h *RedisHistory) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			h.prefix = trimmed
		}
	}
}

func WithHistoryTTL(ttl time.Duration) HistoryOption {
	return func(h *RedisHistory) {
		h.ttl = ttl
	}
}

func WithHistoryCap(messages int) HistoryOption {
	return func(h *RedisHistory) {
		if messages > 0 {
			h.cap = messages
		}
	}
}

func NewRedisHistory(client redis.UniversalClient, opts ...HistoryOption) *RedisHistory {
	h := &RedisHistory{
		client: client,
		prefix: defaultHistoryPrefix,
		ttl:    defaultHistoryTTL,
		cap:    defaultHistoryCap,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

type storedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *RedisHistory) key(actorID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", h.prefix, actorID, sessionID)
}

// Append pushes messages onto the session's list and trims it to the cap so
// long-lived sessions stay bounded.
func (h *RedisHistory) Append(ctx context.Context, actorID, sessionID string, msgs []*schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	key := h.key(actorID, sessionID)
	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		encoded, err := json.Marshal(storedMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
		if err != nil {
			return fmt.Errorf("marshal history message: %w", err)
		}
		values = append(values, encoded)
	}
	if len(values) == 0 {
		return nil
	}

	if err := h.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if err := h.client.LTrim(ctx, key, int64(-h.cap), -1).Err(); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	if h.ttl > 0 {
		if err := h.client.Expire(ctx, key, h.ttl).Err(); err != nil {
			return fmt.Errorf("expire history: %w", err)
		}
	}
	return nil
}

// Recent returns at most limit messages, oldest first.
func (h *RedisHistory) Recent(ctx context.Context, actorID, sessionID string, limit int) ([]*schema.Message, error) {
	if limit <= 0 {
		limit = h.cap
	}

	raw, err := h.client.LRange(ctx, h.key(actorID, sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]*schema.Message, 0, len(raw))
	for _, item := range raw {
		var stored storedMessage
		if err := json.Unmarshal([]byte(item), &stored); err != nil {
			return nil, fmt.Errorf("unmarshal history message: %w", err)
		}
		msgs = append(msgs, &schema.Message{
			Role:    schema.RoleType(stored.Role),
			Content: stored.Content,
		})
	}
	return msgs, nil
}
