package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/polpa/costengine/internal/core"
)

// errorBody is the machine-readable error envelope every failure response
// carries.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Authorization
// failures on reads are 403 here: the 401 cases are handled by the
// authenticating middleware before a handler runs.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation  *core.ValidationError
		notFound    *core.NotFoundError
		forbidden   *core.AuthorizationError
		timeout     *core.UpstreamTimeout
		upstream    *core.UpstreamHTTPError
		persistence *core.PersistenceError
	)

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation", validation.Message)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "not_found", notFound.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, "forbidden", forbidden.Message)
	case errors.As(err, &timeout):
		writeError(w, http.StatusBadGateway, "upstream_timeout", timeout.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, "upstream_error", upstream.Error())
	case errors.As(err, &persistence):
		writeError(w, http.StatusInternalServerError, "persistence", "persistent store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
