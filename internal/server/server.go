// Package server provides the HTTP REST API for the press release console.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/prflow/internal/agent"
	"github.com/jonathan/prflow/internal/crawling"
	"github.com/jonathan/prflow/internal/db"
	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/server/middleware"
	"github.com/jonathan/prflow/internal/server/ratelimit"
	"github.com/jonathan/prflow/internal/types"
)

// maxUploadBytes bounds multipart CSV uploads.
const maxUploadBytes = 32 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       Store
	ingest      Ingester
	pipeline    agent.Pipeline
	rateLimiter *ratelimit.Limiter
	closeStore  func()
}

// Config holds server configuration
type Config struct {
	Port            int
	DatabaseURL     string
	UseBrowser      bool
	CrawlTimeout    time.Duration
	BulkConcurrency int
	Verbose         bool
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	crawler := crawling.New(cfg.CrawlTimeout, cfg.UseBrowser, cfg.Verbose)
	ingest := ingestion.NewService(database, crawler, ingestion.Options{
		Concurrency: cfg.BulkConcurrency,
		Verbose:     cfg.Verbose,
	})

	s := newServer(database, ingest, agent.NewLogPipeline(), ratelimit.NewLimiter(ratelimit.LoadConfig()))
	s.closeStore = database.Close
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // bulk uploads crawl every row before responding
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func newServer(store Store, ingest Ingester, pipeline agent.Pipeline, limiter *ratelimit.Limiter) *Server {
	return &Server{
		store:       store,
		ingest:      ingest,
		pipeline:    pipeline,
		rateLimiter: limiter,
	}
}

// Handler returns the routed API with its middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /companies", s.handleListCompanies)
	mux.HandleFunc("POST /companies", s.handleCreateCompany)
	mux.HandleFunc("POST /companies/bulk", s.handleBulkCompanies)

	mux.HandleFunc("GET /press-releases", s.handleListPressReleases)
	mux.HandleFunc("POST /press-releases", s.handleCreatePressRelease)
	mux.HandleFunc("POST /press-releases/bulk", s.handleBulkPressReleases)
	mux.HandleFunc("GET /press-releases/{id}", s.handleGetPressRelease)
	mux.HandleFunc("GET /press-releases/{id}/eligibility", s.handleEligibility)
	mux.HandleFunc("POST /press-releases/{id}/run", s.handleSubmitRun)
	mux.HandleFunc("POST /press-releases/{id}/processed", s.handleMarkProcessed)

	var h http.Handler = s.withCORS(mux)
	h = s.withLogging(h)
	if s.rateLimiter != nil {
		h = s.withRateLimit(h)
	}
	return middleware.RequestID(middleware.Recover(h))
}

// Start begins listening for requests
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.closeStore != nil {
		s.closeStore()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v (request %s)", r.Method, r.URL.Path, time.Since(start), middleware.GetRequestID(r))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes a {"detail": message} response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"detail": message})
}

// writeError maps err to its status. Validation failures carry the list of
// field errors as detail; everything else carries the error text.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if fields := types.FieldErrors(err); len(fields) > 0 {
		s.jsonResponse(w, http.StatusUnprocessableEntity, map[string]any{"detail": fields})
		return
	}
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] %v", err)
	}
	s.errorResponse(w, status, err.Error())
}

// missingField writes the 422 for a required body field that was absent.
func (s *Server) missingField(w http.ResponseWriter, field string) {
	s.jsonResponse(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []types.FieldError{{Loc: []string{"body", field}, Msg: "field required"}},
	})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrBadRequest{Message: "Invalid request body: " + err.Error()}
	}
	return nil
}

// extractClientID extracts the client identifier from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"detail":    "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d", info.Limit, info.Remaining)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
