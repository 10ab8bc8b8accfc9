// Package api provides the REST endpoints for the flight assistant.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flight_assistant/internal/agent"
	"flight_assistant/internal/metar"
	"flight_assistant/internal/tools"
)

// Server answers assistant queries over HTTP. Each request gets a fresh
// agent so loop state never leaks between callers.
type Server struct {
	registry *tools.Registry
	weather  *metar.Client
	newAgent func() *agent.Agent
	addr     string
}

// Config holds the HTTP server settings.
type Config struct {
	Addr string
}

// NewServer wires the API over the tool registry, the weather client used
// for health probes, and an agent factory.
func NewServer(reg *tools.Registry, weather *metar.Client, newAgent func() *agent.Agent, cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8000"
	}
	return &Server{
		registry: reg,
		weather:  weather,
		newAgent: newAgent,
		addr:     addr,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	r.Mount("/", s.Router())

	log.Printf("Assistant API starting at http://localhost%s", s.addr)
	return http.ListenAndServe(s.addr, r)
}

// Router returns the route table without the outer middleware, mainly for
// tests and embedding.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/query", s.handleQuery)
	r.Post("/query/stream", s.handleQueryStream)
	r.Get("/health", s.handleHealth)
	r.Get("/health/weather", s.handleWeatherHealth)
	r.Get("/tools", s.handleTools)

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// QueryRequest is the body of POST /query and /query/stream. Location and
// user_id are optional: the location hints airport resolution when the
// query names none, and the user id is carried into the audit trail.
type QueryRequest struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

func decodeQuery(r *http.Request) (QueryRequest, error) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return QueryRequest{}, errors.New("invalid JSON body")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return QueryRequest{}, errors.New("query is required")
	}
	return req, nil
}

func (s *Server) agentFor(req QueryRequest) *agent.Agent {
	a := s.newAgent()
	a.UserID = req.UserID
	a.Location = req.Location
	return a
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.agentFor(req).Run(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, metar.ErrInvalidStation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleQueryStream answers with newline-delimited JSON events, one per
// line, ending with the final event.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for ev := range s.agentFor(req).RunStream(r.Context(), req.Query) {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWeatherHealth reports whether live weather is being served.
// Fallback-only mode and upstream failures both answer 503 so load
// balancers can route around a degraded instance.
func (s *Server) handleWeatherHealth(w http.ResponseWriter, r *http.Request) {
	healthy, err := s.weather.Healthy(r.Context())
	if healthy {
		writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
		return
	}
	body := map[string]string{"status": "degraded"}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	catalog := s.registry.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": catalog,
		"count": len(catalog),
	})
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
