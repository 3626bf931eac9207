// Package memoryapi is the REST client for the long-term memory service.
// The service ranks stored snippets against a query per namespace and
// appends conversation events; indexing and strategy management live behind
// the API, not here.
package memoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

var ErrEmptyNamespace = errors.New("memory namespace is empty")

type tokenKey struct{}

// WithToken overrides the client's configured bearer token for calls made
// with the returned context. Gated namespaces use this to forward the
// caller's own credential.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext reports the override token carried by ctx, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Record is one ranked snippet returned by retrieval.
type Record struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// EventMessage is one conversation message appended to an actor's session.
type EventMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("memory service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid memory service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type retrieveRequest struct {
	Namespace string `json:"namespace"`
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
}

type retrieveResponse struct {
	Records []Record `json:"records"`
	Error   string   `json:"error,omitempty"`
}

// Retrieve returns up to topK snippets from the namespace ranked against the
// query, best match first.
func (c *Client) Retrieve(ctx context.Context, namespace, query string, topK int) ([]Record, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, ErrEmptyNamespace
	}
	if topK <= 0 {
		topK = 3
	}

	var parsed retrieveResponse
	err := c.post(ctx, "/retrieve", retrieveRequest{
		Namespace: namespace,
		Query:     query,
		TopK:      topK,
	}, &parsed)
	if err != nil {
		return nil, err
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return parsed.Records, nil
}

type appendEventRequest struct {
	ActorID   string         `json:"actor_id"`
	SessionID string         `json:"session_id"`
	Messages  []EventMessage `json:"messages"`
}

type appendEventResponse struct {
	Error string `json:"error,omitempty"`
}

// AppendEvent appends conversation messages to the durable event record for
// (actorID, sessionID).
func (c *Client) AppendEvent(ctx context.Context, actorID, sessionID string, messages []EventMessage) error {
	if len(messages) == 0 {
		return nil
	}

	var parsed appendEventResponse
	err := c.post(ctx, "/events", appendEventRequest{
		ActorID:   actorID,
		SessionID: sessionID,
		Messages:  messages,
	}, &parsed)
	if err != nil {
		return err
	}
	if parsed.Error != "" {
		return errors.New(parsed.Error)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal memory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build memory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token := c.token
	if override := TokenFromContext(ctx); override != "" {
		token = override
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute memory request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read memory response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("memory service status=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode memory response: %w", err)
	}
	return nil
}
