package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mlinsightlab/mlil/internal/auth"
	"github.com/mlinsightlab/mlil/internal/common/fsutil"
	"github.com/mlinsightlab/mlil/internal/datastore"
	"github.com/mlinsightlab/mlil/internal/manager"
	"github.com/mlinsightlab/mlil/internal/variables"
	"github.com/mlinsightlab/mlil/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps well-known service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsDeploymentNotFound(err),
		errors.Is(err, datastore.ErrFileNotFound),
		errors.Is(err, variables.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case manager.IsDeploymentExists(err),
		errors.Is(err, datastore.ErrFileExists),
		errors.Is(err, variables.ErrExists),
		errors.Is(err, auth.ErrUserExists):
		writeJSONError(w, http.StatusConflict, err.Error())
	case manager.IsRunnerUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, fsutil.ErrUnsafePath):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		var he HTTPError
		if errors.As(err, &he) {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
