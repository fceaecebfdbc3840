// Package api exposes the entry workflow and the appraisal reports over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/seoscore/internal/adapters/http/swagger"
	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/appraisal"
	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
	"github.com/okian/seoscore/pkg/logger"
)

// Workflow is the entry lifecycle the handlers drive.
type Workflow interface {
	CreateClient(ctx context.Context, c model.Client) (model.Client, error)
	GetClient(ctx context.Context, id string) (model.Client, error)
	ListClients(ctx context.Context, typ model.ClientType, includeInactive bool) ([]model.Client, error)

	Create(ctx context.Context, e model.MonthlyEntry) (model.MonthlyEntry, error)
	Get(ctx context.Context, id string) (model.MonthlyEntry, error)
	List(ctx context.Context, f repository.EntryFilter) ([]model.MonthlyEntry, error)
	Update(ctx context.Context, id string, patch model.EntryPatch) (model.MonthlyEntry, error)
	Preview(ctx context.Context, e model.MonthlyEntry) (scoring.Result, error)

	Submit(ctx context.Context, id string) (model.MonthlyEntry, scoring.Result, error)
	Approve(ctx context.Context, id, reviewerID, comment string) (model.MonthlyEntry, error)
	Return(ctx context.Context, id, reviewerID, comment string) (model.MonthlyEntry, error)
	AddMentorScore(ctx context.Context, id string, score float64, reviewerID string) (model.MonthlyEntry, error)
}

// Reports serves the read-only aggregates.
type Reports interface {
	EmployeeMonthScore(ctx context.Context, employeeID, month string) (*float64, error)
	Appraisal(ctx context.Context, employeeID, from, to string) (*appraisal.Appraisal, error)
	EmployeeSummary(ctx context.Context, employeeID string) (appraisal.EmployeeSummary, error)
	TeamMetrics(ctx context.Context, from, to string) (appraisal.TeamMetrics, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	workflow Workflow
	reports  Reports
	stats    StatsProvider
	logger   logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStats exposes stats on GET /stats.
func WithStats(p StatsProvider) Option {
	return func(s *Server) {
		s.stats = p
	}
}

// NewServer creates a new API server.
func NewServer(wf Workflow, reports Reports, opts ...Option) *Server {
	s := &Server{
		workflow: wf,
		reports:  reports,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with every route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.HandleHealth)
	r.Get("/stats", s.HandleStats)
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	swagger.Register(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Post("/", s.HandleCreateClient)
			r.Get("/", s.HandleListClients)
			r.Get("/{id}", s.HandleGetClient)
		})
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", s.HandleCreateEntry)
			r.Get("/", s.HandleListEntries)
			r.Get("/{id}", s.HandleGetEntry)
			r.Patch("/{id}", s.HandleUpdateEntry)
			r.Post("/{id}/submit", s.HandleSubmit)
			r.Post("/{id}/approve", s.HandleApprove)
			r.Post("/{id}/return", s.HandleReturn)
			r.Post("/{id}/mentor-score", s.HandleMentorScore)
		})
		r.Post("/score/preview", s.HandlePreview)
		r.Get("/employees/{id}/months/{month}/score", s.HandleEmployeeMonthScore)
		r.Get("/employees/{id}/appraisal", s.HandleAppraisal)
		r.Get("/employees/{id}/summary", s.HandleEmployeeSummary)
		r.Get("/team/summary", s.HandleTeamSummary)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorBody(err, code, status))
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %s", ErrBadRequest, err.Error())
	}
	return nil
}
