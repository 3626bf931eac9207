package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Config struct {
	Port            int           `envconfig:"PORT" split_words:"true" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// New assembles the HTTP server. Write timeout stays unset because SSE
// responses are open-ended.
func New(cfg Config, orch Orchestrator) *http.Server {
	h := NewHandler(orch)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/invoke", h.handleInvoke)

	handler := chainMiddlewares(mux, withRecover, withCORS, withLogging)

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
	}
}

// Shutdown drains the server within the configured grace period.
func Shutdown(srv *http.Server, cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
