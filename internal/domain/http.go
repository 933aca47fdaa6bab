package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the JSON error envelope returned by all handlers.
type ErrorBody struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps a domain error onto an HTTP response. Validation and
// authorization failures carry actionable detail; integrity and downstream
// failures return a generic message (the specifics go to the log, not the
// client).
func WriteError(w http.ResponseWriter, err error, notFound func(error) bool) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: "validation failed", Fields: verr.Fields})
	case IsAuthz(err):
		WriteJSON(w, http.StatusUnauthorized, ErrorBody{Error: err.Error()})
	case notFound != nil && notFound(err):
		WriteJSON(w, http.StatusNotFound, ErrorBody{Error: "not found"})
	case IsIntegrity(err):
		WriteJSON(w, http.StatusConflict, ErrorBody{Error: "stored state is inconsistent"})
	default:
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal error"})
	}
}
