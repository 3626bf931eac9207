package contract

import (
	"context"
	"strings"
)

// InvokeRequest is one inbound invocation after HTTP decoding. Prompt is the
// customer's raw text; ActorID and SessionID fall back to defaults when the
// client omits them.
type InvokeRequest struct {
	Prompt    string `json:"prompt"`
	ActorID   string `json:"actor_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

// InvokeResult is the terminal outcome of one invocation. Truncated marks a
// reply cut short by turn-budget exhaustion; it is an expected state, not an
// error.
type InvokeResult struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ToolResult is the outcome of a single tool invocation. A failed handler
// degrades to Content describing the failure with IsError set; the
// surrounding conversation continues either way.
type ToolResult struct {
	Tool    string `json:"tool"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// FragmentSink receives streamed assistant text fragments in production
// order. Returning an error tells the producer the consumer is gone; no
// further model round-trips may be issued after that.
type FragmentSink func(fragment string) error

type bearerTokenKey struct{}

// WithBearerToken stashes the caller's bearer credential so gated tool
// sources can authenticate outbound calls for this request only.
func WithBearerToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

func BearerTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}
