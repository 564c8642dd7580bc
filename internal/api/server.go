// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/antifreeze/internal/agents"
	"github.com/talgya/antifreeze/internal/engine"
	"github.com/talgya/antifreeze/internal/persistence"
)

// AdminKeyEnv names the environment variable holding the admin bearer token.
const AdminKeyEnv = "AFZSIM_ADMIN_KEY"

// Server serves the simulation over HTTP.
type Server struct {
	Sim      *engine.Simulation
	DB       *persistence.DB // Optional; history endpoints answer 503 without it
	Metrics  http.Handler    // Optional Prometheus handler mounted at /metrics
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	srv *http.Server
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	commandLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/command", RateLimitMiddleware(commandLimiter, s.adminOnly(s.handleCommand)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "metrics", s.Metrics != nil)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no "+AdminKeyEnv+" set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	st := snap.Stats

	status := map[string]any{
		"name":          "afzsim",
		"run_id":        snap.RunID,
		"frame":         st.Frame,
		"sim_time":      snap.SimClock,
		"speed":         st.Speed,
		"alive":         st.InfectedAlive,
		"corpses":       st.Corpses,
		"survivors":     st.SurvivorsAlive,
		"frozen":        st.Modes.Frozen,
		"antifreeze":    snap.Config != nil && snap.Config.EnableAntifreeze,
		"config_loaded": st.ConfigLoaded,
		"config_resets": st.ConfigResets,
		"frame_ms":      st.FrameMillis,
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Stats)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Config)
}

// handleAgents lists published agents, optionally filtered by ?mode=.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	result := []agents.InfectedView{}
	for _, a := range s.Sim.Snapshot().Agents {
		if len(result) >= limit {
			break
		}
		if mode != "" && a.Mode != mode {
			continue
		}
		result = append(result, a)
	}
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var events []engine.Event
	if run := q.Get("run"); run != "" {
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		stored, err := s.DB.RecentEvents(run, 1000)
		if err != nil {
			slog.Error("events query failed", "run_id", run, "error", err)
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		// Stored events come newest first.
		for i := len(stored) - 1; i >= 0; i-- {
			events = append(events, stored[i])
		}
	} else {
		events = s.Sim.Snapshot().Events
	}

	if category := q.Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	if events == nil {
		events = []engine.Event{}
	}

	writeJSON(w, events[start:])
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = s.Sim.RunID
	}
	fromFrame := uint64(0)
	toFrame := uint64(1<<63 - 1) // Max int64; SQLite integers are signed.
	limit := 300

	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 64); err == nil {
			fromFrame = v
		}
	}
	if t := r.URL.Query().Get("to"); t != "" {
		if v, err := strconv.ParseUint(t, 10, 64); err == nil && v < toFrame {
			toFrame = v
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 3600 {
			limit = v
		}
	}

	rows, err := s.DB.LoadTelemetryHistory(runID, fromFrame, toFrame, limit)
	if err != nil {
		slog.Error("telemetry history query failed", "error", err)
		// Return empty array instead of error; the table may not have data yet.
		writeJSON(w, []engine.Sample{})
		return
	}
	if rows == nil {
		rows = []engine.Sample{}
	}
	writeJSON(w, rows)
}

// runView is a recorded run plus the last frame its telemetry reached.
type runView struct {
	persistence.Run
	LastFrame string `json:"last_frame,omitempty"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	runs, err := s.DB.Runs(50)
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		v := runView{Run: run}
		if last, err := s.DB.GetMeta("last_frame:" + run.ID); err == nil {
			v.LastFrame = last
		}
		views = append(views, v)
	}
	writeJSON(w, views)
}

// handleCommand queues an operator command, e.g. {"command": "afz-reload"},
// {"command": "speed 4"} or {"command": "speed", "value": 4}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req engine.Command
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cmd, err := engine.ParseCommand(req.Text())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.Source = "api"
	s.enqueue(w, cmd)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		s.enqueue(w, engine.Command{Name: engine.CommandSpeed, Value: req.Speed, Source: "api"})
		return
	}

	writeJSON(w, map[string]float64{"speed": s.Sim.Snapshot().Stats.Speed})
}

func (s *Server) enqueue(w http.ResponseWriter, cmd engine.Command) {
	err := s.Sim.Enqueue(cmd)
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("command queued", "command", cmd.Name, "value", cmd.Value, "source", cmd.Source)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"queued":  cmd.Name,
		"value":   cmd.Value,
		"message": "applied before the next frame",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
