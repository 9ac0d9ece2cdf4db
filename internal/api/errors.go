package api

import (
	"encoding/json"
	"net/http"

	"repolens/internal/errors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{Error: err.Error(), Code: string(errors.CodeOf(err))}
	if lensErr, ok := err.(*errors.LensError); ok {
		resp.Details = lensErr.Details
	}
	writeJSON(w, resp, status)
}

// writeLensError maps the error code to an HTTP status.
func writeLensError(w http.ResponseWriter, err error) {
	writeError(w, err, statusForCode(errors.CodeOf(err)))
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.PathNotFound:
		return http.StatusNotFound
	case errors.PathNotDirectory, errors.InvalidArgument:
		return http.StatusBadRequest
	case errors.AnalysisFailed:
		return http.StatusUnprocessableEntity
	case errors.QueueClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, errors.New(errors.InvalidArgument, message), http.StatusBadRequest)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, errors.New(errors.InvalidArgument, "method not allowed: "+r.Method),
		http.StatusMethodNotAllowed)
}
