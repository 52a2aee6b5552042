// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	service "github.com/riftcoach/insight/internal/app"
	"github.com/riftcoach/insight/internal/adapters/repository"
	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/normalize"
	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/types"
)

// Default request limits.
const (
	DefaultAnalyzeTimeout = 10 * time.Second
	maxBodyBytes          = 8 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the engine.
type Dependencies interface {
	StatsProvider

	Analyze(ctx context.Context, req service.AnalyzeRequest) (*model.InsightReport, error)
	GetProgress(ctx context.Context, playerID string) (model.PlayerProgressRecord, error)
	Trend(ctx context.Context, playerID string, category types.Category, window int) (progress.Trend, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analyzeHandler  *AnalyzeHandler
	progressHandler *ProgressHandler
	limiter         *rate.Limiter
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit limits POST /analyze to perSec requests with the given
// burst. A non-positive rate disables the limit.
func WithRateLimit(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithAnalyzeTimeout bounds a single analysis.
func WithAnalyzeTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.analyzeHandler.timeout = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		analyzeHandler:  NewAnalyzeHandler(deps),
		progressHandler: NewProgressHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /analyze", MetricsMiddleware(RateLimit(s.analyzeHandler.HandleAnalyze, s.limiter, "analyze"), "analyze"))
	mux.HandleFunc("GET /progress/{player}", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("GET /progress/{player}/trend", MetricsMiddleware(s.progressHandler.HandleGetTrend, "trend"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps engine errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, normalize.ErrSchema),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, normalize.ErrUnsupportedSchema):
		return http.StatusUnprocessableEntity, "unsupported_schema"
	case errors.Is(err, normalize.ErrIncompleteMatch),
		errors.Is(err, features.ErrInvalidMatch):
		return http.StatusUnprocessableEntity, "incomplete_match"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrTimeout),
		errors.Is(err, progress.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
