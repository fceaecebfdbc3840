package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
	"github.com/okian/seoscore/internal/domain/workflow"
)

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Comment    string `json:"comment"`
}

type mentorScoreRequest struct {
	MentorScore *float64 `json:"mentor_score"`
	ReviewerID  string   `json:"reviewer_id"`
}

type submitResponse struct {
	Entry model.MonthlyEntry `json:"entry"`
	Score scoring.Result     `json:"score"`
}

func badParam(name string) error {
	return fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
}

// HandleCreateEntry handles POST /api/v1/entries.
func (s *Server) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var e model.MonthlyEntry
	if err := decode(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.workflow.Create(r.Context(), e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleGetEntry handles GET /api/v1/entries/{id}.
func (s *Server) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.workflow.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleListEntries handles GET /api/v1/entries with optional employee_id,
// client_id, month, from, to, status, limit and offset filters.
func (s *Server) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.EntryFilter{
		EmployeeID: q.Get("employee_id"),
		ClientID:   q.Get("client_id"),
		Month:      q.Get("month"),
		FromMonth:  q.Get("from"),
		ToMonth:    q.Get("to"),
		Status:     model.Status(q.Get("status")),
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, badParam(p.name))
			return
		}
		*p.dst = n
	}

	list, err := s.workflow.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleUpdateEntry handles PATCH /api/v1/entries/{id}. System-computed
// fields in the body are ignored.
func (s *Server) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var patch model.EntryPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.workflow.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleSubmit handles POST /api/v1/entries/{id}/submit.
func (s *Server) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	e, result, err := s.workflow.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Entry: e, Score: result})
}

// HandleApprove handles POST /api/v1/entries/{id}/approve.
func (s *Server) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.workflow.Approve(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleReturn handles POST /api/v1/entries/{id}/return.
func (s *Server) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.workflow.Return(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleMentorScore handles POST /api/v1/entries/{id}/mentor-score.
func (s *Server) HandleMentorScore(w http.ResponseWriter, r *http.Request) {
	var req mentorScoreRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.MentorScore == nil {
		s.writeError(w, r, &workflow.ValidationError{Fields: []string{"mentor_score"}, Message: "missing required fields"})
		return
	}
	e, err := s.workflow.AddMentorScore(r.Context(), chi.URLParam(r, "id"), *req.MentorScore, req.ReviewerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandlePreview handles POST /api/v1/score/preview. Nothing is stored.
func (s *Server) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var e model.MonthlyEntry
	if err := decode(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.workflow.Preview(r.Context(), e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
