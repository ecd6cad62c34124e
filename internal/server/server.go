// Package server exposes the recorder over HTTP and serves the UI.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/history"
	"codeberg.org/mutker/acclogger/internal/logger"
	"codeberg.org/mutker/acclogger/internal/netinfo"
	"codeberg.org/mutker/acclogger/internal/recorder"
	"codeberg.org/mutker/acclogger/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Recorder is the session control the API drives.
type Recorder interface {
	Start(name string, intervalMs uint32) (recorder.Info, error)
	Stop() error
	Status() recorder.Info
	Remove(name string) error
	Policy() recorder.Policy
}

// Files is read access to the card.
type Files interface {
	List() ([]storage.Entry, error)
	Open(name string) (storage.Reader, error)
}

type History interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

type NetInfo interface {
	Detect() netinfo.Info
}

// Deps holds the collaborators. History and Static may be nil.
type Deps struct {
	Recorder Recorder
	Files    Files
	History  History
	Net      NetInfo
	Static   http.FileSystem
}

type Server struct {
	deps Deps
	log  logger.Logger
}

func New(deps Deps) *Server {
	return &Server{deps: deps, log: logger.With("server")}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/start", s.handleStart)
	mux.HandleFunc("GET /api/stop", s.handleStop)
	mux.HandleFunc("GET /api/list", s.handleList)
	mux.HandleFunc("GET /api/download", s.handleDownload)
	mux.HandleFunc("GET /api/delete", s.handleDelete)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New().WithMessage(errors.ErrNotFound, "Unknown endpoint"))
	})

	if s.deps.Static != nil {
		mux.Handle("GET /", http.FileServer(s.deps.Static))
	}

	return s.logRequests(mux)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	s.log.Info().Msg("HTTP server stopped")

	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("took", time.Since(start)).
			Msg("Request")
	})
}
