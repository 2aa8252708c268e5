// Package status serves the current trace over HTTP as JSON.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/itohio/goadc/pkg/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 5 * time.Second

// Source provides the data served by the API. *trace.Trace implements it.
type Source interface {
	Samples() []sample.Sample
	Stats() trace.Stats
}

// SampleResponse is the JSON rendering of a sample.
type SampleResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Raw       uint16    `json:"raw"`
	Volts     float64   `json:"volts"`
}

// StatsResponse is the JSON rendering of the window statistics.
type StatsResponse struct {
	Count  int             `json:"count"`
	Min    float64         `json:"min"`
	Max    float64         `json:"max"`
	Mean   float64         `json:"mean"`
	StdDev float64         `json:"stddev"`
	Latest *SampleResponse `json:"latest,omitempty"`
}

// Server exposes a Source.
type Server struct {
	src    Source
	logger *zap.SugaredLogger
	router *mux.Router
}

// New creates a Server and its routes.
func New(src Source, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		src:    src,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/latest", s.latest).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	s.router.HandleFunc("/samples", s.samples).Methods(http.MethodGet)

	return s
}

// Handler returns the router wrapped with panic recovery and access logging at debug level.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if access, err := zap.NewStdLogAt(s.logger.Desugar(), zapcore.DebugLevel); err == nil {
		h = handlers.LoggingHandler(access.Writer(), h)
	}
	return handlers.RecoveryHandler()(h)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Status API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status API shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status API: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) latest(w http.ResponseWriter, _ *http.Request) {
	stats := s.src.Stats()
	if stats.Count == 0 {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no samples yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, toSampleResponse(stats.Latest))
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	stats := s.src.Stats()
	resp := StatsResponse{
		Count:  stats.Count,
		Min:    stats.Min,
		Max:    stats.Max,
		Mean:   stats.Mean,
		StdDev: stats.StdDev,
	}
	if stats.Count > 0 {
		latest := toSampleResponse(stats.Latest)
		resp.Latest = &latest
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// samples returns the window, optionally downsampled with ?points=N.
func (s *Server) samples(w http.ResponseWriter, r *http.Request) {
	points := 0
	if v := r.URL.Query().Get("points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must be a non-negative integer"})
			return
		}
		points = n
	}

	samples := sample.DownsampleSamples(nil, s.src.Samples(), points)
	resp := make([]SampleResponse, len(samples))
	for i, smp := range samples {
		resp[i] = toSampleResponse(smp)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("Failed to encode response", "error", err)
	}
}

func toSampleResponse(s sample.Sample) SampleResponse {
	return SampleResponse{
		Timestamp: s.Timestamp.UTC(),
		Raw:       uint16(s.Raw),
		Volts:     s.Volts,
	}
}
