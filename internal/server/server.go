// Package server exposes the operational HTTP surface: health, status and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atorsvn/neku-bot/internal/config"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server is the operational HTTP listener. It never serves bot traffic; chat
// arrives through the channel adapters.
type Server struct {
	cfg        *config.Config
	chatHealth HealthChecker
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is the /api/v1/status payload.
type StatusResponse struct {
	Status    string          `json:"status"`
	Uptime    string          `json:"uptime"`
	Services  map[string]bool `json:"services"`
	Channels  map[string]bool `json:"channels"`
	Timestamp string          `json:"timestamp"`
}

// New creates the operational server on the configured host and port.
func New(cfg *config.Config, chatHealth HealthChecker, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		chatHealth: chatHealth,
		logger:     logger,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/v1/status", s.statusHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown or failure.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	services := map[string]bool{
		"tts":     s.cfg.TTS.URL != "",
		"emotion": s.cfg.Emotion.URL != "",
	}
	if s.chatHealth != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		services["ollama"] = s.chatHealth.Health(ctx) == nil
	}

	response := StatusResponse{
		Status:    "healthy",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
		Channels: map[string]bool{
			"discord": s.cfg.Discord.Enabled,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
