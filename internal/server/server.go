// Package server is the HTTP boundary: POST {"text": "..."} in, plain text
// out. Every POST is answered with 200; failures travel in the body as
// "Ошибка: ..." strings.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"glados/internal/assistant"
	"glados/internal/nlu"
)

const (
	contentType     = "text/plain; charset=utf-8"
	requestIDHeader = "X-Request-Id"

	// the completion call alone may take up to five minutes
	writeTimeout = 6 * time.Minute
)

type Handler interface {
	Handle(ctx context.Context, source, utterance string) string
}

type Server struct {
	handler Handler
	logger  *slog.Logger
	router  chi.Router
}

func New(handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		handler: handler,
		logger:  logger.With("component", "server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/", s.handleUtterance)
	r.Post("/*", s.handleUtterance)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = io.WriteString(w, nlu.ErrorPrefix+"method not allowed")
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	logger := s.logger.With("request_id", id)
	w.Header().Set(requestIDHeader, id)

	logger.Info("POST", "path", r.URL.Path, "remote", r.RemoteAddr)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, logger, "Request processing error: "+err.Error())
		return
	}
	if len(body) == 0 {
		s.fail(w, logger, "Empty request body")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		s.fail(w, logger, "Invalid JSON in request: "+err.Error())
		return
	}
	rawText, ok := fields["text"]
	if !ok {
		s.fail(w, logger, "Missing 'text' field in request")
		return
	}
	var text string
	if string(rawText) == "null" || json.Unmarshal(rawText, &text) != nil {
		s.fail(w, logger, "'text' field must be a string")
		return
	}

	// device_id and result.slots come from the Home Assistant trigger
	var deviceID string
	_ = json.Unmarshal(fields["device_id"], &deviceID)
	logger.Info("Processing text", "text", text, "device_id", deviceID, "result", string(fields["result"]))

	ctx := assistant.WithLogger(r.Context(), logger)
	s.reply(w, s.handler.Handle(ctx, "http", text))
}

func (s *Server) fail(w http.ResponseWriter, logger *slog.Logger, msg string) {
	logger.Error(msg)
	s.reply(w, nlu.ErrorPrefix+msg)
}

func (s *Server) reply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}
