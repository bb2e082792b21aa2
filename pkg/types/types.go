package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ModelKey identifies a deployed model by name, flavor and version (or alias).
type ModelKey struct {
	// Registered model name.
	// example: churn-predictor
	Name string `json:"model_name" example:"churn-predictor"`
	// MLflow model flavor (e.g. pyfunc, sklearn, transformers).
	// example: pyfunc
	Flavor string `json:"model_flavor" example:"pyfunc"`
	// Model version number or registered alias.
	// example: 3
	Version string `json:"model_version_or_alias" example:"3"`
}

// String renders the key as name/flavor/version for logs and lookups.
func (k ModelKey) String() string {
	return k.Name + "/" + k.Flavor + "/" + k.Version
}

// Validate reports whether all key components are present and well formed.
func (k ModelKey) Validate() error {
	for _, part := range []struct{ field, v string }{
		{"model_name", k.Name},
		{"model_flavor", k.Flavor},
		{"model_version_or_alias", k.Version},
	} {
		if strings.TrimSpace(part.v) == "" {
			return fmt.Errorf("%s is required", part.field)
		}
		if strings.ContainsAny(part.v, "/\\") || strings.Contains(part.v, "__") {
			return fmt.Errorf("%s must not contain path separators or '__'", part.field)
		}
	}
	return nil
}

// DeploySpec is the request payload to deploy a model container.
type DeploySpec struct {
	ModelKey
	// MLflow model URI resolved by the serving container.
	// example: models:/churn-predictor/3
	ModelURI string `json:"model_uri" example:"models:/churn-predictor/3"`
	// Grant the container access to all available GPUs.
	// example: false
	UseGPU bool `json:"use_gpu,omitempty" example:"false"`
}

// DeploymentState is the lifecycle state reported for a deployment.
type DeploymentState string

const (
	StateRunning DeploymentState = "running"
	StateExited  DeploymentState = "exited"
	StateUnknown DeploymentState = "unknown"
)

// Deployment describes a tracked model container.
type Deployment struct {
	DeploySpec
	// Container name on the model network.
	// example: mlil__model__churn-predictor__pyfunc__3
	ContainerName string `json:"container_name" example:"mlil__model__churn-predictor__pyfunc__3"`
	// Runtime container ID, when known.
	ContainerID string `json:"container_id,omitempty"`
	// Time the deployment was created (unix seconds).
	// example: 1700000000
	CreatedAt int64 `json:"created_at_unix" example:"1700000000"`
}

// DeploymentsResponse wraps the list returned by GET /models/list.
type DeploymentsResponse struct {
	Deployments []Deployment `json:"deployments"`
}

// ModelStatusResponse is returned by GET /models/status/....
type ModelStatusResponse struct {
	ModelKey
	// Container runtime state.
	// example: running
	State string `json:"state" example:"running"`
}

// ModelLogsResponse is returned by GET /models/logs/....
type ModelLogsResponse struct {
	ModelKey
	Logs string `json:"logs"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Tracked deployments.
	Deployments []Deployment `json:"deployments"`
	// Total successful deploys since start.
	DeploysTotal uint64 `json:"deploys_total"`
	// Total removals since start.
	RemovalsTotal uint64 `json:"removals_total"`
	// Uptime of the daemon in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
}

// UploadRequest is the payload for POST /data/upload.
// File contents travel base64-encoded inside the JSON body.
type UploadRequest struct {
	// Destination name in the data store, may contain subdirectories.
	// example: datasets/churn.csv
	Filename string `json:"filename" example:"datasets/churn.csv"`
	// Base64-encoded file contents.
	FileBytes string `json:"file_bytes"`
	// Replace an existing file of the same name.
	// example: false
	Overwrite bool `json:"overwrite,omitempty" example:"false"`
}

// DownloadRequest is the payload for POST /data/download.
type DownloadRequest struct {
	Filename string `json:"filename" example:"datasets/churn.csv"`
}

// DownloadResponse carries base64-encoded file contents.
type DownloadResponse struct {
	Filename  string `json:"filename"`
	FileBytes string `json:"file_bytes"`
}

// ListDataRequest is the payload for POST /data/list.
type ListDataRequest struct {
	// Directory to list, relative to the user's data root. Empty lists the root.
	Directory string `json:"directory,omitempty" example:"datasets"`
}

// FileInfo describes one stored file.
type FileInfo struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	// Last modification time (unix seconds).
	ModifiedUnix int64 `json:"modified_unix"`
}

// ListDataResponse wraps a data store listing.
type ListDataResponse struct {
	Files []FileInfo `json:"files"`
}

// SetVariableRequest is the payload for POST /variables/set.
type SetVariableRequest struct {
	// Variable name.
	// example: threshold
	VariableName string `json:"variable_name" example:"threshold"`
	// Arbitrary JSON value: string, number, boolean, object or array.
	Value json.RawMessage `json:"value"`
	// Replace an existing variable of the same name.
	Overwrite bool `json:"overwrite,omitempty"`
}

// VariableResponse is returned by GET /variables/get/{name}.
type VariableResponse struct {
	VariableName string          `json:"variable_name"`
	Value        json.RawMessage `json:"value"`
}

// VariablesResponse is returned by GET /variables/list.
type VariablesResponse struct {
	Variables map[string]json.RawMessage `json:"variables"`
}

// Prediction is one recorded model invocation.
type Prediction struct {
	ModelKey
	// Request payload sent to the model.
	Request json.RawMessage `json:"request"`
	// Response payload returned by the model.
	Response json.RawMessage `json:"response"`
	// Time the prediction was recorded (unix seconds).
	RecordedUnix int64 `json:"recorded_unix"`
}

// PredictionsResponse wraps predictions for one model key.
type PredictionsResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// PredictionModelsResponse lists model keys that have stored predictions.
type PredictionModelsResponse struct {
	Models []ModelKey `json:"models"`
}

// User is an authenticated platform principal.
type User struct {
	Username string `json:"username"`
	// Role is either "admin" or "user".
	Role string `json:"role"`
	// Account creation time.
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserRequest is the payload for POST /users/create.
type CreateUserRequest struct {
	Username string `json:"username" example:"analyst"`
	// Role is either "admin" or "user".
	Role string `json:"role" example:"user"`
}

// CreateUserResponse returns the generated API key. The key is shown once
// and never stored in clear text.
type CreateUserResponse struct {
	Username string `json:"username"`
	Key      string `json:"key"`
	Role     string `json:"role"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: deployment not found: churn-predictor/pyfunc/3
	Error string `json:"error" example:"deployment not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
