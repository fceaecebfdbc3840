package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/seoscore/internal/domain/appraisal"
)

type monthScoreResponse struct {
	EmployeeID string   `json:"employee_id"`
	Month      string   `json:"month"`
	Score      *float64 `json:"score"`
}

type appraisalResponse struct {
	EmployeeID string               `json:"employee_id"`
	From       string               `json:"from"`
	To         string               `json:"to"`
	Appraisal  *appraisal.Appraisal `json:"appraisal"`
}

// HandleEmployeeMonthScore handles
// GET /api/v1/employees/{id}/months/{month}/score. The score is null when
// the employee has no approved entry that month.
func (s *Server) HandleEmployeeMonthScore(w http.ResponseWriter, r *http.Request) {
	id, month := chi.URLParam(r, "id"), chi.URLParam(r, "month")
	score, err := s.reports.EmployeeMonthScore(r.Context(), id, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthScoreResponse{EmployeeID: id, Month: month, Score: score})
}

// HandleAppraisal handles GET /api/v1/employees/{id}/appraisal?from=&to=.
func (s *Server) HandleAppraisal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	ap, err := s.reports.Appraisal(r.Context(), id, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appraisalResponse{EmployeeID: id, From: from, To: to, Appraisal: ap})
}

// HandleEmployeeSummary handles GET /api/v1/employees/{id}/summary.
func (s *Server) HandleEmployeeSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reports.EmployeeSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleTeamSummary handles GET /api/v1/team/summary?from=&to=.
func (s *Server) HandleTeamSummary(w http.ResponseWriter, r *http.Request) {
	m, err := s.reports.TeamMetrics(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
