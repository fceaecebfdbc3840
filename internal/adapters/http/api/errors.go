package api

import (
	"errors"
	"net/http"

	"github.com/okian/seoscore/internal/domain/appraisal"
	"github.com/okian/seoscore/internal/domain/workflow"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrServe      = errors.New("http serve failed")
)

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// statusFor maps domain errors to a status code and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, appraisal.ErrInvalidPeriod):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, workflow.ErrDuplicateEntry), errors.Is(err, workflow.ErrDuplicateClient):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorBody(err error, code string, status int) errorResponse {
	resp := errorResponse{Code: code, Message: http.StatusText(status)}
	if status >= http.StatusInternalServerError {
		return resp
	}
	resp.Message = err.Error()
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	return resp
}
