package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/seoscore/internal/domain/model"
)

// HandleCreateClient handles POST /api/v1/clients.
func (s *Server) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	var c model.Client
	if err := decode(r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.workflow.CreateClient(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleGetClient handles GET /api/v1/clients/{id}.
func (s *Server) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.workflow.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleListClients handles GET /api/v1/clients?type=&include_inactive=.
func (s *Server) HandleListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeInactive := false
	if v := q.Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, badParam("include_inactive"))
			return
		}
		includeInactive = b
	}
	list, err := s.workflow.ListClients(r.Context(), model.ClientType(q.Get("type")), includeInactive)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
