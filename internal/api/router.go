package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/processors", func(r chi.Router) {
			r.Get("/", s.handleListProcessors)
			r.Get("/{id}", s.handleGetProcessor)
		})

		r.Get("/commands", s.handleListCommands)
	})

	return r
}

// ComponentHealth is the state of one checked component.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealth checks every registered component. Any failing component
// turns the answer into 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     "ok",
		Version:    s.version,
		Components: make(map[string]ComponentHealth, len(names)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.health[name].HealthCheck(ctx)
		cancel()

		if err != nil {
			resp.Status = "degraded"
			resp.Components[name] = ComponentHealth{Status: "error", Error: err.Error()}
			continue
		}
		resp.Components[name] = ComponentHealth{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleListProcessors returns every processor with its binding.
func (s *Server) handleListProcessors(w http.ResponseWriter, _ *http.Request) {
	infos := s.processors.Describe()
	writeJSON(w, http.StatusOK, map[string]any{
		"processors": infos,
		"count":      len(infos),
	})
}

// handleGetProcessor returns a single processor by ID.
func (s *Server) handleGetProcessor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, info := range s.processors.Describe() {
		if info.ID == id {
			writeJSON(w, http.StatusOK, info)
			return
		}
	}
	writeNotFound(w, "processor not found: "+id)
}

// uptime is the time since the server was created.
func (s *Server) uptime() time.Duration {
	return time.Since(s.startTime)
}
