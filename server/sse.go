package server

import (
	"fmt"
	"net/http"
)

const doneSentinel = "[DONE]"

// sseWriter streams assistant fragments as Server-Sent Events. Every write
// flushes so fragments reach the client as the model emits them.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteFragment emits one data event. Empty fragments are dropped so the
// terminal sentinel stays unambiguous.
func (s *sseWriter) WriteFragment(fragment string) error {
	if fragment == "" {
		return nil
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", fragment); err != nil {
		return fmt.Errorf("write fragment: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteDone emits the terminal sentinel that tells clients the stream is
// complete.
func (s *sseWriter) WriteDone() error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", doneSentinel); err != nil {
		return fmt.Errorf("write done sentinel: %w", err)
	}
	s.flusher.Flush()
	return nil
}
