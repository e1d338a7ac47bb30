package gateway

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"voyago/internal/agent"
	"voyago/internal/history"

	"github.com/google/uuid"
)

//go:embed ui.html
var indexHTML []byte

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sessionInfo struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int64     `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

type chatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// sourceLabels maps tool names to the source labels reported to clients.
var sourceLabels = map[string]string{
	"doc_search": "travel_documents",
	"web_search": "web_search",
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	sse := NewSSEWriter(w)
	sse.Send("session", map[string]string{"session_id": req.SessionID})

	var sentError bool
	sources := make(map[string]bool)

	err := s.runner.Run(r.Context(), req.SessionID, req.Message, func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToken:
			sse.Send("token", map[string]string{"content": ev.Data.(string)})
		case agent.EventToolCall:
			if d, ok := ev.Data.(map[string]string); ok {
				if label, ok := sourceLabels[d["name"]]; ok {
					sources[label] = true
				}
			}
			sse.Send("tool_call", ev.Data)
		case agent.EventToolResult:
			sse.Send("tool_result", ev.Data)
		case agent.EventError:
			sentError = true
			sse.Send("error", map[string]string{"error": ev.Data.(string)})
		case agent.EventDone:
			used := make([]string, 0, len(sources))
			for label := range sources {
				used = append(used, label)
			}
			sse.Send("done", map[string]any{
				"session_id": req.SessionID,
				"sources":    used,
			})
		}
	})

	if err != nil && !sentError {
		sse.Send("error", map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.queries.ListSessions(r.Context())
	if err != nil {
		slog.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "listing sessions failed")
		return
	}

	infos := make([]sessionInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, sessionInfo{
			SessionID:    row.ID,
			CreatedAt:    row.CreatedAt,
			MessageCount: row.MessageCount,
			LastActivity: row.LastActivity,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, err := s.queries.GetSession(r.Context(), id)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		slog.Error("getting session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "getting session failed")
		return
	}

	count, err := s.queries.CountTurnsBySession(r.Context(), id)
	if err != nil {
		slog.Error("counting turns", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "getting session failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionInfo{
		SessionID:    session.ID,
		CreatedAt:    session.CreatedAt,
		MessageCount: count,
		LastActivity: session.LastActivity,
	})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.queries.GetSession(r.Context(), id); err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "session not found")
		return
	} else if err != nil {
		slog.Error("getting session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "getting session failed")
		return
	}

	turns, err := s.queries.GetTurnsBySession(r.Context(), id)
	if err != nil {
		slog.Error("loading turns", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "loading messages failed")
		return
	}

	messages := make([]chatMessage, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages, chatMessage{
			Role:      "user",
			Content:   turn.UserMessage,
			Timestamp: turn.CreatedAt,
		})
		for _, text := range history.AssistantTexts(turn.ResponseJson) {
			messages = append(messages, chatMessage{
				Role:      "assistant",
				Content:   text,
				Timestamp: turn.CreatedAt,
			})
		}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.queries.GetSession(r.Context(), id); err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "session not found")
		return
	} else if err != nil {
		slog.Error("getting session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "deleting session failed")
		return
	}

	if err := s.queries.DeleteSession(r.Context(), id); err != nil {
		slog.Error("deleting session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "deleting session failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.queries.GetSession(r.Context(), id); err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "session not found")
		return
	} else if err != nil {
		slog.Error("getting session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "clearing session failed")
		return
	}

	if err := s.queries.DeleteTurnsBySession(r.Context(), id); err != nil {
		slog.Error("clearing session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "clearing session failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session cleared"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
