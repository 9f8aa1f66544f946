// Package status serves run progress and Prometheus metrics during long runs.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Snapshot is the progress view served at /progress.
type Snapshot struct {
	Total       int `json:"total"`
	Done        int `json:"done"`
	Validated   int `json:"validated"`
	Quarantined int `json:"quarantined"`
	Failed      int `json:"failed"`
}

// SnapshotFunc returns the current progress of the run.
type SnapshotFunc func() Snapshot

// Server is the optional debug HTTP listener.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// Start launches the listener on addr. A nil Server is returned (and nothing
// listens) when addr is empty.
func Start(addr string, snap SnapshotFunc, logger *zap.Logger) *Server {
	if addr == "" {
		return nil
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/progress", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap())
	})

	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("status listener stopped", zap.Error(err))
		}
	}()
	logger.Info("status listener started", zap.String("addr", addr))
	return s
}

// Shutdown stops the listener. Safe on a nil Server.
func (s *Server) Shutdown(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("status listener shutdown", zap.Error(err))
	}
}
