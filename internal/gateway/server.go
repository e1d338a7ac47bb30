package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"voyago/internal/agent"
	"voyago/internal/channels"
	"voyago/internal/db"
)

const Version = "1.0.0"

type Server struct {
	runner     agent.Runner
	queries    *db.Queries
	mux        *http.ServeMux
	sessionTTL time.Duration
}

func NewServer(runner agent.Runner, database *db.DB, sessionTTL time.Duration, chs ...channels.Channel) *Server {
	s := &Server{
		runner:     runner,
		queries:    db.New(database.Conn()),
		mux:        http.NewServeMux(),
		sessionTTL: sessionTTL,
	}
	s.routes()
	for _, ch := range chs {
		ch.RegisterRoutes(s.mux)
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/chat", s.handleChat)
	s.mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("GET /v1/sessions/{id}/messages", s.handleSessionMessages)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /v1/sessions/{id}/clear", s.handleClearSession)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs the gateway until ctx is cancelled, then shuts down
// gracefully. A background reaper deletes sessions idle past the TTL.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	if s.sessionTTL > 0 {
		go s.reapSessions(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) reapSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.sessionTTL)
			n, err := s.queries.DeleteIdleSessions(ctx, cutoff)
			if err != nil {
				slog.Warn("session reaper failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("reaped idle sessions", "count", n)
			}
		}
	}
}
