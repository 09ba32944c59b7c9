// Package http serves classroll over HTTP: the HTML pages, the JSON API v1
// and the health probes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classroll/classroll/internal/application/command"
	"github.com/classroll/classroll/internal/application/query"
	"github.com/classroll/classroll/internal/interface/http/handlers"
	"github.com/classroll/classroll/pkg/logger"
	"github.com/classroll/classroll/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxUploadBytes - maximum size of a spreadsheet upload.
	MaxUploadBytes int64

	// AllowedOrigins - CORS origins for the JSON API. Empty disables CORS.
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// Version is reported by /health and the API envelope.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		MaxUploadBytes:     10 << 20,
		RateLimitPerMinute: 300,
		Version:            "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (write side)
	CreateClassroom  *command.CreateClassroomHandler
	DeleteClassroom  *command.DeleteClassroomHandler
	CreateStudent    *command.CreateStudentHandler
	ImportStudents   *command.BulkImportStudentsHandler
	DeleteStudent    *command.DeleteStudentHandler
	SubmitAttendance *command.SubmitAttendanceHandler

	// Query Handlers (read side)
	ListClassrooms      *query.ListClassroomsHandler
	ListStudents        *query.ListStudentsHandler
	GetStudent          *query.GetStudentHandler
	QueryRecords        *query.QueryRecordsHandler
	StudentHistory      *query.StudentHistoryHandler
	RosterForAttendance *query.RosterForAttendanceHandler

	// Clock supplies the default date of the attendance form.
	Clock *timeutil.Clock

	// Logger
	Logger *logger.Logger

	// HealthChecker backs /health and /ready. Optional.
	HealthChecker handlers.HealthChecker

	// Auth guards mutating routes. Nil disables authentication.
	Auth *handlers.BasicAuth
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger
	pages      map[string]*template.Template

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and
// dependencies. It fails only if the embedded templates do not parse.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
		pages:  pages,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	if s.deps.Clock == nil {
		s.deps.Clock = timeutil.NewClock(nil)
	}
	if s.config.MaxUploadBytes <= 0 {
		s.config.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s, nil
}

// Handler returns the fully wrapped handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)

	// ─────────────────────────────────────────────────────────────────────────
	// HTML pages
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /{$}", s.pageIndex)
	s.router.HandleFunc("GET /students/new", s.pageNewStudent)
	s.router.HandleFunc("POST /students", s.pageCreateStudent)
	s.router.HandleFunc("GET /classrooms", s.pageClassrooms)
	s.router.HandleFunc("POST /classrooms", s.pageCreateClassroom)
	s.router.HandleFunc("POST /classrooms/{id}/delete", s.pageDeleteClassroom)
	s.router.HandleFunc("GET /students/upload", s.pageUpload)
	s.router.Handle("POST /students/upload", s.limitUpload(http.HandlerFunc(s.pageUploadSubmit)))
	s.router.HandleFunc("GET /attendance", s.pageAttendance)
	s.router.HandleFunc("POST /attendance", s.pageAttendanceSubmit)
	s.router.HandleFunc("GET /records", s.pageRecords)
	s.router.HandleFunc("POST /records", s.pageRecords)
	s.router.HandleFunc("GET /students/{id}", s.pageStudent)
	s.router.HandleFunc("POST /students/{id}/delete", s.pageDeleteStudent)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1", s.handleAPIRoot)
	s.router.HandleFunc("GET /api/v1/classrooms", s.apiListClassrooms)
	s.router.HandleFunc("POST /api/v1/classrooms", s.apiCreateClassroom)
	s.router.HandleFunc("DELETE /api/v1/classrooms/{id}", s.apiDeleteClassroom)
	s.router.HandleFunc("GET /api/v1/classrooms/{id}/roster", s.apiRoster)
	s.router.Handle("POST /api/v1/classrooms/{id}/students/import", s.limitUpload(http.HandlerFunc(s.apiImportStudents)))
	s.router.HandleFunc("GET /api/v1/students", s.apiListStudents)
	s.router.HandleFunc("POST /api/v1/students", s.apiCreateStudent)
	s.router.HandleFunc("GET /api/v1/students/{id}", s.apiGetStudent)
	s.router.HandleFunc("DELETE /api/v1/students/{id}", s.apiDeleteStudent)
	s.router.HandleFunc("GET /api/v1/students/{id}/attendance", s.apiStudentHistory)
	s.router.HandleFunc("POST /api/v1/attendance", s.apiSubmitAttendance)
	s.router.HandleFunc("GET /api/v1/attendance/records", s.apiQueryRecords)
}

func (s *Server) limitUpload(next http.Handler) http.Handler {
	return handlers.RequestSizeLimitMiddleware(s.config.MaxUploadBytes)(next)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router with all middleware, outermost first.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
	}
	if len(s.config.AllowedOrigins) > 0 {
		chain = append(chain, s.corsMiddleware)
	}
	if s.rateLimiter != nil {
		chain = append(chain, s.rateLimitMiddleware)
	}
	chain = append(chain,
		handlers.SecurityHeadersMiddleware,
		handlers.NoCacheMiddleware,
		s.deps.Auth.Middleware,
	)
	return handlers.Chain(chain...)(handler)
}

// requestIDMiddleware adds a unique request ID to each request and a
// request-scoped logger to its context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.String("ip", getClientIP(r)),
		}
		log := logger.FromContext(r.Context())
		if rw.statusCode >= http.StatusInternalServerError {
			log.Error("http request", fields...)
		} else {
			log.Info("http request", fields...)
		}
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers to API responses.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		allowed := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware implements per-IP rate limiting.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSONWithMeta(w, nil, status, data, nil)
}

// writeJSONWithMeta writes a JSON response with custom metadata.
func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data interface{}, meta *ResponseMeta) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	response := JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	}
	if r != nil {
		response.RequestID = getRequestID(r.Context())
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSONErrorWithDetails(w, status, code, message, "")
}

// writeJSONErrorWithDetails writes an error JSON response with details.
func writeJSONErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	valid := prune(rl.requests[key], now.Add(-rl.window))

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// Stop ends the cleanup goroutine.
func (rl *rateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, requests := range rl.requests {
				valid := prune(requests, now.Add(-rl.window))
				if len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

// prune drops timestamps not after windowStart.
func prune(ts []time.Time, windowStart time.Time) []time.Time {
	valid := ts[:0]
	for _, t := range ts {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}
