// Package web exposes the venue search over HTTP as a small JSON API,
// mirroring what the chat bot does for a shared location.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"venuebot/internal/foursquare"
)

// Server serves the venue search API.
type Server struct {
	httpServer *http.Server
	searcher   foursquare.Searcher
	logger     *slog.Logger
}

// NewServer creates the HTTP server on addr.
func NewServer(addr string, searcher foursquare.Searcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "web")

	s := &Server{
		searcher: searcher,
		logger:   log,
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(log))
	r.HandleFunc("/api/v1", s.handleSearch).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for serving through a custom
// listener or an HTTP test server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Web interface listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown failed: %w", err)
	}
	s.logger.Info("Web interface stopped.")
	return ctx.Err()
}

// handleSearch runs a venue search for the lat/lng query parameters and
// returns the venue records as JSON.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		http.Error(w, "invalid or missing lat parameter", http.StatusBadRequest)
		return
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		http.Error(w, "invalid or missing lng parameter", http.StatusBadRequest)
		return
	}

	venues, err := s.searcher.Search(r.Context(), foursquare.Point{Latitude: lat, Longitude: lng})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Venue search failed", "error", err)
		http.Error(w, "venue search failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(venues); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

func loggingMiddleware(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("Handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start))
		})
	}
}
