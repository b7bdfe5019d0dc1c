package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apiv1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/service"
	"github.com/dcm-project/policy-sdk/internal/validation"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// handleError maps service errors to HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.Type {
		case service.ErrorTypeInvalidArgument:
			writeError(w, r, http.StatusBadRequest, apiv1.ErrorCodeValidation,
				"Api validation failed: "+serviceErr.Message, serviceErr.Detail)
			return
		case service.ErrorTypeNotFound:
			writeError(w, r, http.StatusNotFound, apiv1.ErrorCodeNotFound,
				"Not found: "+serviceErr.Message, serviceErr.Detail)
			return
		case service.ErrorTypeAlreadyExists:
			writeError(w, r, http.StatusConflict, apiv1.ErrorCodeValidation,
				"Api validation failed: "+serviceErr.Message, serviceErr.Detail)
			return
		case service.ErrorTypeFailedPrecondition:
			writeError(w, r, http.StatusConflict, apiv1.ErrorCodeInvalidStatus,
				serviceErr.Message, serviceErr.Detail)
			return
		}
	}

	// Default to internal server error
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	writeError(w, r, http.StatusInternalServerError, apiv1.ErrorCodeInternal,
		"Internal Server Error", "")
}

func handleValidation(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		ValidationError(w, r, verr)
		return
	}
	handleError(w, r, err)
}

// ValidationError writes a 400 for a request rejected by schema validation.
func ValidationError(w http.ResponseWriter, r *http.Request, err *validation.Error) {
	writeError(w, r, http.StatusBadRequest, apiv1.ErrorCodeValidation,
		"Api validation failed: "+err.Summary, err.Causes...)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, summary string, causes ...string) {
	body := apiv1.Error{
		ErrorCode:    code,
		ErrorSummary: summary,
		ErrorLink:    code,
		ErrorID:      errorID(r),
	}
	for _, c := range causes {
		if c != "" {
			body.ErrorCauses = append(body.ErrorCauses, apiv1.ErrorCause{ErrorSummary: c})
		}
	}
	writeJSON(w, status, body)
}

// errorID reuses the request id so a reported error can be found in the logs.
func errorID(r *http.Request) string {
	id := middleware.GetReqID(r.Context())
	if id == "" {
		return ""
	}
	return "oae" + strings.NewReplacer("/", "", "-", "").Replace(id)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
