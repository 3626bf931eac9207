package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/kritsada/careline/agent/contract"
)

// Handler exposes the agent over HTTP.
type Handler struct {
	orch Orchestrator
}

// Orchestrator is the surface the HTTP layer needs from the pipeline.
type Orchestrator interface {
	Handle(ctx context.Context, req contractx.InvokeRequest) (contractx.InvokeResult, error)
	HandleStream(ctx context.Context, req contractx.InvokeRequest, sink contractx.FragmentSink) (contractx.InvokeResult, error)
}

func NewHandler(orch Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req contractx.InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		badRequest(w, contractx.ErrPromptMissing.Error())
		return
	}

	ctx := r.Context()
	if bearer := bearerToken(r); bearer != "" {
		ctx = contractx.WithBearerToken(ctx, bearer)
	}

	if req.Stream {
		h.invokeStream(ctx, w, req)
		return
	}

	result, err := h.orch.Handle(ctx, req)
	if err != nil {
		if errors.Is(err, contractx.ErrPromptMissing) || errors.Is(err, contractx.ErrValidation) {
			badRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Str("actor_id", req.ActorID).Msg("invoke failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) invokeStream(ctx context.Context, w http.ResponseWriter, req contractx.InvokeRequest) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	_, err = h.orch.HandleStream(ctx, req, sse.WriteFragment)
	if err != nil {
		// Headers are already out as text/event-stream; the error rides the
		// stream itself before the terminal sentinel.
		log.Error().Err(err).Str("actor_id", req.ActorID).Msg("stream invoke failed")
		_ = sse.WriteFragment("Error: " + err.Error())
	}
	if err := sse.WriteDone(); err != nil {
		log.Warn().Err(err).Msg("failed to write stream terminator")
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
