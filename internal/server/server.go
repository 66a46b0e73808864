// Package server exposes the service over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvonline/internal/metrics"
	"github.com/voyagen/tvonline/internal/service"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	svc  *service.Service
	port string
	log  *logrus.Entry
	mux  *http.ServeMux
	h    http.Handler
}

// New creates a Server and registers routes.
func New(svc *service.Service, port string, log *logrus.Entry) *Server {
	srv := &Server{svc: svc, port: port, log: log.WithField("component", "http"), mux: http.NewServeMux()}
	srv.routes()
	srv.h = srv.withLogging(srv.mux)
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Channels
	s.mux.HandleFunc("GET /api/channels/search", s.handleSearchChannels)
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("DELETE /api/channels", s.handleClearChannels)
	s.mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("POST /api/channels/{id}/favorite", s.handleToggleFavorite)
	s.mux.HandleFunc("POST /api/channels/{id}/play", s.handlePlay)
	s.mux.HandleFunc("GET /api/channels/{id}/epg", s.handleEPG)
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("GET /api/favorites", s.handleFavorites)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)

	// Imports
	s.mux.HandleFunc("POST /api/import/text", s.handleImportText)
	s.mux.HandleFunc("POST /api/import/url", s.handleImportURL)
	s.mux.HandleFunc("POST /api/import/file", s.handleImportFile)
	s.mux.HandleFunc("POST /api/import/sample", s.handleImportSample)
	s.mux.HandleFunc("POST /api/import/xtream", s.handleImportXtream)
	s.mux.HandleFunc("GET /api/xtream/categories", s.handleXtreamCategories)

	// Saved playlists
	s.mux.HandleFunc("GET /api/playlists", s.handleListPlaylists)
	s.mux.HandleFunc("POST /api/playlists", s.handleSavePlaylist)
	s.mux.HandleFunc("POST /api/playlists/{id}/load", s.handleLoadPlaylist)
	s.mux.HandleFunc("DELETE /api/playlists/{id}", s.handleDeletePlaylist)

	// Settings
	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PATCH /api/settings", s.handleUpdateSettings)

	s.mux.Handle("GET /metrics", metrics.Handler())

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler, with request logging and metrics.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.h.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("server shutdown")
		}
	}()

	s.log.WithField("addr", addr).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// statusWriter captures the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging logs each request and records it in the HTTP metrics under
// its route pattern.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(r.Method, route, sw.status, elapsed)

		entry := s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": elapsed.Milliseconds(),
		})
		if sw.status >= 500 {
			entry.Warn("request")
		} else {
			entry.Debug("request")
		}
	})
}
