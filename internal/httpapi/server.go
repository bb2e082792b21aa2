package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// DeploymentService is the manager surface required by the HTTP layer.
type DeploymentService interface {
	Deploy(ctx context.Context, spec types.DeploySpec) (types.Deployment, error)
	Remove(ctx context.Context, key types.ModelKey) error
	List() []types.Deployment
	Status(ctx context.Context, key types.ModelKey) (string, error)
	Logs(ctx context.Context, key types.ModelKey) (string, error)
	Endpoint(key types.ModelKey) (string, error)
	StatusReport() types.StatusResponse
	Ready(ctx context.Context) bool
}

// DataService is the file store surface required by the HTTP layer.
type DataService interface {
	Put(user, name string, b []byte, overwrite bool) error
	Get(user, name string) ([]byte, error)
	List(user, dir string) ([]types.FileInfo, error)
}

// VariableService is the variable store surface required by the HTTP layer.
type VariableService interface {
	Set(ctx context.Context, user, name string, value json.RawMessage, overwrite bool) error
	Get(ctx context.Context, user, name string) (json.RawMessage, error)
	List(ctx context.Context, user string) (map[string]json.RawMessage, error)
	Delete(ctx context.Context, user, name string) error
}

// PredictionService is the prediction log surface required by the HTTP layer.
type PredictionService interface {
	Record(ctx context.Context, key types.ModelKey, request, response json.RawMessage) error
	ForModel(ctx context.Context, key types.ModelKey) ([]types.Prediction, error)
	Models(ctx context.Context) ([]types.ModelKey, error)
}

// UserService manages platform accounts (admin only).
type UserService interface {
	CreateUser(ctx context.Context, username, role string) (string, error)
	DeleteUser(ctx context.Context, username string) error
}

// Services bundles everything NewMux wires into routes.
type Services struct {
	Deployments DeploymentService
	Data        DataService
	Variables   VariableService
	Predictions PredictionService
	Users       UserService
	Auth        Authenticator
}

// invokeClient performs proxied model invocations.
var invokeClient = &http.Client{}

// NewMux builds the platform router: liveness/metrics endpoints are open,
// everything else sits behind basic auth, deployment and user management
// additionally behind the admin role.
func NewMux(svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Deployments.Ready(r.Context()) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("runner unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	// Authenticated surface.
	r.Group(func(pr chi.Router) {
		pr.Use(BasicAuth(svc.Auth))
		pr.Use(RequestLogger)

		pr.Route("/data", func(dr chi.Router) {
			dr.Post("/upload", uploadData(svc.Data))
			dr.Post("/download", downloadData(svc.Data))
			dr.Post("/list", listData(svc.Data))
		})

		pr.Route("/variables", func(vr chi.Router) {
			vr.Get("/get/{name}", getVariable(svc.Variables))
			vr.Get("/list", listVariables(svc.Variables))
			vr.Post("/set", setVariable(svc.Variables))
			vr.Delete("/delete/{name}", deleteVariable(svc.Variables))
		})

		pr.Route("/predictions", func(sr chi.Router) {
			sr.Get("/get/{model}/{flavor}/{version}", getPredictions(svc.Predictions))
			sr.Get("/models", listPredictionModels(svc.Predictions))
		})

		pr.Route("/models", func(mr chi.Router) {
			mr.Get("/list", listDeployments(svc.Deployments))
			mr.Get("/status/{model}/{flavor}/{version}", modelStatus(svc.Deployments))
			mr.Get("/logs/{model}/{flavor}/{version}", modelLogs(svc.Deployments))
			mr.Post("/invoke/{model}/{flavor}/{version}", invokeModel(svc.Deployments, svc.Predictions))

			mr.Group(func(ar chi.Router) {
				ar.Use(RequireAdmin)
				ar.Post("/deploy", deployModel(svc.Deployments))
				ar.Delete("/remove", removeModel(svc.Deployments))
			})
		})

		pr.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Deployments.StatusReport())
		})

		pr.Group(func(ar chi.Router) {
			ar.Use(RequireAdmin)
			ar.Post("/users/create", createUser(svc.Users))
			ar.Delete("/users/delete/{username}", deleteUser(svc.Users))
		})
	})

	return r
}

// decodeJSON enforces content type and body size, then decodes into v.
// On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

// keyFromURL extracts the model key from /{model}/{flavor}/{version} routes.
func keyFromURL(r *http.Request) (types.ModelKey, error) {
	k := types.ModelKey{
		Name:    chi.URLParam(r, "model"),
		Flavor:  chi.URLParam(r, "flavor"),
		Version: chi.URLParam(r, "version"),
	}
	return k, k.Validate()
}

func uploadData(data DataService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.UploadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Filename) == "" {
			writeJSONError(w, http.StatusBadRequest, "filename is required")
			return
		}
		b, err := base64.StdEncoding.DecodeString(req.FileBytes)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "file_bytes is not valid base64")
			return
		}
		u, _ := UserFrom(r.Context())
		if err := data.Put(u.Username, req.Filename, b, req.Overwrite); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"filename": req.Filename})
	}
}

func downloadData(data DataService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DownloadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Filename) == "" {
			writeJSONError(w, http.StatusBadRequest, "filename is required")
			return
		}
		u, _ := UserFrom(r.Context())
		b, err := data.Get(u.Username, req.Filename)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.DownloadResponse{
			Filename:  req.Filename,
			FileBytes: base64.StdEncoding.EncodeToString(b),
		})
	}
}

func listData(data DataService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListDataRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		u, _ := UserFrom(r.Context())
		files, err := data.List(u.Username, req.Directory)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if files == nil {
			files = []types.FileInfo{}
		}
		writeJSON(w, http.StatusOK, types.ListDataResponse{Files: files})
	}
}

func getVariable(vars VariableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		u, _ := UserFrom(r.Context())
		value, err := vars.Get(r.Context(), u.Username, name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.VariableResponse{VariableName: name, Value: value})
	}
}

func listVariables(vars VariableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		all, err := vars.List(r.Context(), u.Username)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.VariablesResponse{Variables: all})
	}
}

func setVariable(vars VariableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SetVariableRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.VariableName) == "" {
			writeJSONError(w, http.StatusBadRequest, "variable_name is required")
			return
		}
		if len(req.Value) == 0 {
			writeJSONError(w, http.StatusBadRequest, "value is required")
			return
		}
		u, _ := UserFrom(r.Context())
		if err := vars.Set(r.Context(), u.Username, req.VariableName, req.Value, req.Overwrite); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"variable_name": req.VariableName})
	}
}

func deleteVariable(vars VariableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		u, _ := UserFrom(r.Context())
		if err := vars.Delete(r.Context(), u.Username, name); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"variable_name": name})
	}
}

func getPredictions(preds PredictionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromURL(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := preds.ForModel(r.Context(), key)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if out == nil {
			out = []types.Prediction{}
		}
		writeJSON(w, http.StatusOK, types.PredictionsResponse{Predictions: out})
	}
}

func listPredictionModels(preds PredictionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := preds.Models(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if models == nil {
			models = []types.ModelKey{}
		}
		writeJSON(w, http.StatusOK, types.PredictionModelsResponse{Models: models})
	}
}

func listDeployments(deps DeploymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := deps.List()
		if out == nil {
			out = []types.Deployment{}
		}
		writeJSON(w, http.StatusOK, types.DeploymentsResponse{Deployments: out})
	}
}

func deployModel(deps DeploymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec types.DeploySpec
		if !decodeJSON(w, r, &spec) {
			return
		}
		if err := spec.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		dep, err := deps.Deploy(ctx, spec)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, dep)
	}
}

func removeModel(deps DeploymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var key types.ModelKey
		if !decodeJSON(w, r, &key) {
			return
		}
		if err := key.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := deps.Remove(ctx, key); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, key)
	}
}

func modelStatus(deps DeploymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromURL(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		state, err := deps.Status(r.Context(), key)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ModelStatusResponse{ModelKey: key, State: state})
	}
}

func modelLogs(deps DeploymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromURL(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		logs, err := deps.Logs(r.Context(), key)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ModelLogsResponse{ModelKey: key, Logs: logs})
	}
}

// invokeModel forwards the JSON body to the deployed model server and
// records the exchange in the prediction log.
func invokeModel(deps DeploymentService, preds PredictionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromURL(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		if !json.Valid(payload) {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		state, err := deps.Status(r.Context(), key)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if state != string(types.StateRunning) {
			writeJSONError(w, http.StatusConflict, "model is not running (state: "+state+")")
			return
		}
		endpoint, err := deps.Endpoint(key)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, invokeTimeout)
		defer cancelTimeout()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/invocations", bytes.NewReader(payload))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := invokeClient.Do(req)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeJSONError(w, http.StatusBadGateway, "model invocation failed: "+err.Error())
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, "failed to read model response")
			return
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			writeJSONError(w, http.StatusBadGateway, "model returned status "+itoa(resp.StatusCode))
			return
		}
		if err := preds.Record(r.Context(), key, payload, body); err != nil && zlog != nil {
			zlog.Error().Err(err).Str("model", key.String()).Msg("record prediction")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

func createUser(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateUserRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Username) == "" {
			writeJSONError(w, http.StatusBadRequest, "username is required")
			return
		}
		if req.Role == "" {
			req.Role = "user"
		}
		key, err := users.CreateUser(r.Context(), req.Username, req.Role)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.CreateUserResponse{
			Username: req.Username,
			Key:      key,
			Role:     req.Role,
		})
	}
}

func deleteUser(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		if err := users.DeleteUser(r.Context(), username); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"username": username})
	}
}
