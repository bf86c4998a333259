package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/chat"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/storage"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" || req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "project_id and query are required")
		return
	}
	s.logger.Debug("chat request",
		zap.String("project_id", req.ProjectID),
		zap.String("session_id", req.SessionID),
		zap.String("mode", string(req.ContextMode)))

	resp, err := s.chat.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "chat session not found")
			return
		}
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// streamEvent is one SSE payload on the chat stream.
type streamEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Insights  any    `json:"insights,omitempty"`
	Citations any    `json:"citations,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" || req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "project_id and query are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	emit := func(ev streamEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(data)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	resp, err := s.chat.Stream(r.Context(), req, func(delta string) error {
		emit(streamEvent{Type: "token", Content: delta})
		return nil
	})
	if err != nil {
		s.logger.Error("chat stream failed", zap.Error(err))
		message := err.Error()
		if errors.Is(err, storage.ErrSessionNotFound) {
			message = "Session not found"
		}
		emit(streamEvent{Type: "error", Message: message})
		return
	}

	emit(streamEvent{
		Type:      "done",
		SessionID: resp.SessionID,
		Insights:  resp.Insights,
		Citations: resp.Citations,
	})
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req chat.SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chat.Synthesize(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrTooFewNodes) || errors.Is(err, chat.ErrNoNodeContent) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("synthesis failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sessions, err := s.chat.ListSessions(r.Context(), projectID)
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*models.ChatSession{}
	}
	s.respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	detail, err := s.chat.GetSessionDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("get session failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.logger.Debug("delete session request", zap.String("session_id", id))
	if err := s.chat.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("delete session failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	summary, err := s.chat.Summarize(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("summary generation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSearchSessions(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	query := r.URL.Query().Get("q")
	if projectID == "" || query == "" {
		s.respondError(w, http.StatusBadRequest, "project_id and q are required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	hits, err := s.chat.SearchMessages(r.Context(), projectID, query, limit)
	if err != nil {
		s.logger.Error("transcript search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"hits": hits, "count": len(hits)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"vector_index_size": s.index.Count(),
		"config": map[string]any{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"top_k":                s.config.Retrieval.TopK,
			"graph_depth":          s.config.Retrieval.GraphDepthOrDefault(),
			"max_context_nodes":    s.config.Retrieval.MaxContextNodes,
			"llm_provider":         s.config.LLM.Provider,
			"llm_model":            s.config.LLM.Model,
		},
	}

	if s.testConnection != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := s.testConnection(ctx); err != nil {
			resp["llm"] = map[string]string{"status": "error", "message": err.Error()}
		} else {
			resp["llm"] = map[string]string{"status": "ok"}
		}
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
