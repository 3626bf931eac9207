// Package session models the client-facing conversation history and the
// prompt transforms applied before invoking the agent.
package session

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// DefaultWindowPairs bounds how many prior user+assistant pairs are carried
// into a new model conversation. Older turns are dropped silently; the
// memory service remains the durable record.
const DefaultWindowPairs = 10

const contextLabel = "Customer Context:"

// BuildEnhancedPrompt prepends the retrieved customer context block to the
// user text. With no context the user text passes through unchanged. Pure
// string transform, no model involvement.
func BuildEnhancedPrompt(retrievedContext, userText string) string {
	if strings.TrimSpace(retrievedContext) == "" {
		return userText
	}
	return contextLabel + "\n" + retrievedContext + "\n\n" + userText
}

// Window keeps only the most recent pairs user+assistant pairs (2*pairs
// messages). pairs <= 0 falls back to DefaultWindowPairs.
func Window(msgs []*schema.Message, pairs int) []*schema.Message {
	if pairs <= 0 {
		pairs = DefaultWindowPairs
	}
	keep := 2 * pairs
	if len(msgs) <= keep {
		return msgs
	}
	return msgs[len(msgs)-keep:]
}
