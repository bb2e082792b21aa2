package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlinsightlab/mlil/internal/auth"
	"github.com/mlinsightlab/mlil/internal/datastore"
	"github.com/mlinsightlab/mlil/internal/manager"
	"github.com/mlinsightlab/mlil/internal/variables"
	"github.com/mlinsightlab/mlil/pkg/types"
)

// fakeAuth verifies against a static username -> (key, role) table.
type fakeAuth struct {
	users map[string][2]string
}

func (a *fakeAuth) Verify(_ context.Context, username, key string) (types.User, error) {
	cred, ok := a.users[username]
	if !ok || cred[0] != key {
		return types.User{}, auth.ErrInvalidCredentials
	}
	return types.User{Username: username, Role: cred[1]}, nil
}

type fakeDeployments struct {
	deployments []types.Deployment
	deployErr   error
	removeErr   error
	state       string
	statusErr   error
	logs        string
	endpoint    string
	ready       bool
}

func (d *fakeDeployments) Deploy(_ context.Context, spec types.DeploySpec) (types.Deployment, error) {
	if d.deployErr != nil {
		return types.Deployment{}, d.deployErr
	}
	dep := types.Deployment{DeploySpec: spec, ContainerName: "c"}
	d.deployments = append(d.deployments, dep)
	return dep, nil
}

func (d *fakeDeployments) Remove(context.Context, types.ModelKey) error { return d.removeErr }
func (d *fakeDeployments) List() []types.Deployment                     { return d.deployments }

func (d *fakeDeployments) Status(context.Context, types.ModelKey) (string, error) {
	return d.state, d.statusErr
}

func (d *fakeDeployments) Logs(context.Context, types.ModelKey) (string, error) {
	return d.logs, d.statusErr
}

func (d *fakeDeployments) Endpoint(types.ModelKey) (string, error) { return d.endpoint, nil }
func (d *fakeDeployments) StatusReport() types.StatusResponse      { return types.StatusResponse{} }
func (d *fakeDeployments) Ready(context.Context) bool              { return d.ready }

type fakeData struct {
	files map[string][]byte
}

func (d *fakeData) Put(user, name string, b []byte, overwrite bool) error {
	k := user + "/" + name
	if _, ok := d.files[k]; ok && !overwrite {
		return datastore.ErrFileExists
	}
	d.files[k] = b
	return nil
}

func (d *fakeData) Get(user, name string) ([]byte, error) {
	b, ok := d.files[user+"/"+name]
	if !ok {
		return nil, datastore.ErrFileNotFound
	}
	return b, nil
}

func (d *fakeData) List(user, dir string) ([]types.FileInfo, error) {
	var out []types.FileInfo
	for k, b := range d.files {
		if strings.HasPrefix(k, user+"/") {
			out = append(out, types.FileInfo{Name: strings.TrimPrefix(k, user+"/"), SizeBytes: int64(len(b))})
		}
	}
	return out, nil
}

type fakeVars struct {
	vals map[string]json.RawMessage
}

func (v *fakeVars) Set(_ context.Context, user, name string, value json.RawMessage, overwrite bool) error {
	k := user + "/" + name
	if _, ok := v.vals[k]; ok && !overwrite {
		return variables.ErrExists
	}
	v.vals[k] = value
	return nil
}

func (v *fakeVars) Get(_ context.Context, user, name string) (json.RawMessage, error) {
	val, ok := v.vals[user+"/"+name]
	if !ok {
		return nil, variables.ErrNotFound
	}
	return val, nil
}

func (v *fakeVars) List(_ context.Context, user string) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for k, val := range v.vals {
		if strings.HasPrefix(k, user+"/") {
			out[strings.TrimPrefix(k, user+"/")] = val
		}
	}
	return out, nil
}

func (v *fakeVars) Delete(_ context.Context, user, name string) error {
	k := user + "/" + name
	if _, ok := v.vals[k]; !ok {
		return variables.ErrNotFound
	}
	delete(v.vals, k)
	return nil
}

type fakePreds struct {
	recorded []types.Prediction
}

func (p *fakePreds) Record(_ context.Context, key types.ModelKey, req, resp json.RawMessage) error {
	p.recorded = append(p.recorded, types.Prediction{ModelKey: key, Request: req, Response: resp})
	return nil
}

func (p *fakePreds) ForModel(_ context.Context, key types.ModelKey) ([]types.Prediction, error) {
	var out []types.Prediction
	for _, pr := range p.recorded {
		if pr.ModelKey == key {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (p *fakePreds) Models(context.Context) ([]types.ModelKey, error) {
	seen := map[types.ModelKey]bool{}
	var out []types.ModelKey
	for _, pr := range p.recorded {
		if !seen[pr.ModelKey] {
			seen[pr.ModelKey] = true
			out = append(out, pr.ModelKey)
		}
	}
	return out, nil
}

type fakeUsers struct {
	created map[string]string
}

func (u *fakeUsers) CreateUser(_ context.Context, username, role string) (string, error) {
	if _, ok := u.created[username]; ok {
		return "", auth.ErrUserExists
	}
	u.created[username] = role
	return "generated-key", nil
}

func (u *fakeUsers) DeleteUser(_ context.Context, username string) error {
	if _, ok := u.created[username]; !ok {
		return auth.ErrUserNotFound
	}
	delete(u.created, username)
	return nil
}

type fixture struct {
	srv   *httptest.Server
	deps  *fakeDeployments
	data  *fakeData
	vars  *fakeVars
	preds *fakePreds
	users *fakeUsers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		deps:  &fakeDeployments{ready: true, state: string(types.StateRunning)},
		data:  &fakeData{files: map[string][]byte{}},
		vars:  &fakeVars{vals: map[string]json.RawMessage{}},
		preds: &fakePreds{},
		users: &fakeUsers{created: map[string]string{}},
	}
	mux := NewMux(Services{
		Deployments: f.deps,
		Data:        f.data,
		Variables:   f.vars,
		Predictions: f.preds,
		Users:       f.users,
		Auth: &fakeAuth{users: map[string][2]string{
			"admin": {"admin-key", auth.RoleAdmin},
			"alice": {"alice-key", auth.RoleUser},
		}},
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) request(t *testing.T, method, path, user, key string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthzOpen(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodGet, "/healthz", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReadyzUnavailable(t *testing.T) {
	f := newFixture(t)
	f.deps.ready = false
	resp := f.request(t, http.MethodGet, "/readyz", "", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodGet, "/models/list", "", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); !strings.Contains(got, "Basic") {
		t.Fatalf("expected WWW-Authenticate header, got %q", got)
	}
}

func TestAuthBadKey(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodGet, "/models/list", "alice", "wrong", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestDeployRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	spec := types.DeploySpec{
		ModelKey: types.ModelKey{Name: "churn", Flavor: "pyfunc", Version: "3"},
		ModelURI: "models:/churn/3",
	}
	resp := f.request(t, http.MethodPost, "/models/deploy", "alice", "alice-key", spec)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
	resp = f.request(t, http.MethodPost, "/models/deploy", "admin", "admin-key", spec)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d", resp.StatusCode)
	}
	var dep types.Deployment
	decodeBody(t, resp, &dep)
	if dep.Name != "churn" || dep.ContainerName == "" {
		t.Fatalf("unexpected deployment: %+v", dep)
	}
}

func TestDeployValidation(t *testing.T) {
	f := newFixture(t)
	spec := types.DeploySpec{ModelKey: types.ModelKey{Name: "churn", Flavor: "py/func", Version: "3"}}
	resp := f.request(t, http.MethodPost, "/models/deploy", "admin", "admin-key", spec)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeployConflictMapping(t *testing.T) {
	f := newFixture(t)
	f.deps.deployErr = manager.ErrDeploymentExists("churn/pyfunc/3")
	spec := types.DeploySpec{
		ModelKey: types.ModelKey{Name: "churn", Flavor: "pyfunc", Version: "3"},
		ModelURI: "models:/churn/3",
	}
	resp := f.request(t, http.MethodPost, "/models/deploy", "admin", "admin-key", spec)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var e types.ErrorResponse
	decodeBody(t, resp, &e)
	if e.Code != http.StatusConflict {
		t.Fatalf("unexpected error payload: %+v", e)
	}
}

func TestRemoveErrorMapping(t *testing.T) {
	f := newFixture(t)
	f.deps.removeErr = manager.ErrDeploymentNotFound("churn/pyfunc/3")
	key := types.ModelKey{Name: "churn", Flavor: "pyfunc", Version: "3"}
	resp := f.request(t, http.MethodDelete, "/models/remove", "admin", "admin-key", key)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	f.deps.removeErr = manager.ErrRunnerUnavailable("docker daemon unreachable")
	resp = f.request(t, http.MethodDelete, "/models/remove", "admin", "admin-key", key)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestModelStatusAndLogs(t *testing.T) {
	f := newFixture(t)
	f.deps.state = string(types.StateExited)
	f.deps.logs = "starting gunicorn"

	resp := f.request(t, http.MethodGet, "/models/status/churn/pyfunc/3", "alice", "alice-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var st types.ModelStatusResponse
	decodeBody(t, resp, &st)
	if st.State != string(types.StateExited) || st.Name != "churn" {
		t.Fatalf("unexpected status: %+v", st)
	}

	resp = f.request(t, http.MethodGet, "/models/logs/churn/pyfunc/3", "alice", "alice-key", nil)
	var lg types.ModelLogsResponse
	decodeBody(t, resp, &lg)
	if lg.Logs != "starting gunicorn" {
		t.Fatalf("unexpected logs: %+v", lg)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	f := newFixture(t)
	content := []byte("a,b\n1,2\n")
	up := types.UploadRequest{
		Filename:  "datasets/churn.csv",
		FileBytes: base64.StdEncoding.EncodeToString(content),
	}
	resp := f.request(t, http.MethodPost, "/data/upload", "alice", "alice-key", up)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", resp.StatusCode)
	}

	// Uploading the same name again without overwrite conflicts.
	resp = f.request(t, http.MethodPost, "/data/upload", "alice", "alice-key", up)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp = f.request(t, http.MethodPost, "/data/download", "alice", "alice-key", types.DownloadRequest{Filename: "datasets/churn.csv"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", resp.StatusCode)
	}
	var dl types.DownloadResponse
	decodeBody(t, resp, &dl)
	got, err := base64.StdEncoding.DecodeString(dl.FileBytes)
	if err != nil {
		t.Fatalf("decode file bytes: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestUploadBadBase64(t *testing.T) {
	f := newFixture(t)
	up := types.UploadRequest{Filename: "x", FileBytes: "not base64!!!"}
	resp := f.request(t, http.MethodPost, "/data/upload", "alice", "alice-key", up)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDownloadMissing(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodPost, "/data/download", "alice", "alice-key", types.DownloadRequest{Filename: "nope.csv"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/data/list", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.SetBasicAuth("alice", "alice-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.StatusCode)
	}
}

func TestVariablesFlow(t *testing.T) {
	f := newFixture(t)
	set := types.SetVariableRequest{VariableName: "threshold", Value: json.RawMessage(`0.75`)}
	resp := f.request(t, http.MethodPost, "/variables/set", "alice", "alice-key", set)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set: expected 200, got %d", resp.StatusCode)
	}

	resp = f.request(t, http.MethodPost, "/variables/set", "alice", "alice-key", set)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without overwrite, got %d", resp.StatusCode)
	}

	resp = f.request(t, http.MethodGet, "/variables/get/threshold", "alice", "alice-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var v types.VariableResponse
	decodeBody(t, resp, &v)
	if string(v.Value) != "0.75" {
		t.Fatalf("unexpected value: %s", v.Value)
	}

	resp = f.request(t, http.MethodGet, "/variables/list", "alice", "alice-key", nil)
	var all types.VariablesResponse
	decodeBody(t, resp, &all)
	if len(all.Variables) != 1 {
		t.Fatalf("expected 1 variable, got %+v", all.Variables)
	}

	resp = f.request(t, http.MethodDelete, "/variables/delete/threshold", "alice", "alice-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp = f.request(t, http.MethodGet, "/variables/get/threshold", "alice", "alice-key", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestInvokeModel(t *testing.T) {
	f := newFixture(t)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invocations" {
			t.Errorf("unexpected backend path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions":[0.9]}`))
	}))
	defer backend.Close()
	f.deps.endpoint = backend.URL
	f.deps.state = string(types.StateRunning)

	resp := f.request(t, http.MethodPost, "/models/invoke/churn/pyfunc/3", "alice", "alice-key", map[string]any{"inputs": []int{1}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string][]float64
	decodeBody(t, resp, &out)
	if len(out["predictions"]) != 1 || out["predictions"][0] != 0.9 {
		t.Fatalf("unexpected model output: %+v", out)
	}
	if len(f.preds.recorded) != 1 {
		t.Fatalf("expected 1 recorded prediction, got %d", len(f.preds.recorded))
	}
	if f.preds.recorded[0].Name != "churn" {
		t.Fatalf("unexpected recorded key: %+v", f.preds.recorded[0].ModelKey)
	}
}

func TestInvokeModelNotRunning(t *testing.T) {
	f := newFixture(t)
	f.deps.state = string(types.StateExited)
	resp := f.request(t, http.MethodPost, "/models/invoke/churn/pyfunc/3", "alice", "alice-key", map[string]any{"inputs": []int{1}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestInvokeModelBackendDown(t *testing.T) {
	f := newFixture(t)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()
	f.deps.endpoint = backend.URL

	resp := f.request(t, http.MethodPost, "/models/invoke/churn/pyfunc/3", "alice", "alice-key", map[string]any{"inputs": []int{1}})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestPredictionsEndpoints(t *testing.T) {
	f := newFixture(t)
	key := types.ModelKey{Name: "churn", Flavor: "pyfunc", Version: "3"}
	f.preds.recorded = []types.Prediction{{ModelKey: key, Request: json.RawMessage(`{}`), Response: json.RawMessage(`{}`)}}

	resp := f.request(t, http.MethodGet, "/predictions/get/churn/pyfunc/3", "alice", "alice-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var preds types.PredictionsResponse
	decodeBody(t, resp, &preds)
	if len(preds.Predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(preds.Predictions))
	}

	resp = f.request(t, http.MethodGet, "/predictions/models", "alice", "alice-key", nil)
	var models types.PredictionModelsResponse
	decodeBody(t, resp, &models)
	if len(models.Models) != 1 || models.Models[0] != key {
		t.Fatalf("unexpected models: %+v", models.Models)
	}
}

func TestUserManagement(t *testing.T) {
	f := newFixture(t)

	// Only admins may manage users.
	resp := f.request(t, http.MethodPost, "/users/create", "alice", "alice-key", types.CreateUserRequest{Username: "bob"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp = f.request(t, http.MethodPost, "/users/create", "admin", "admin-key", types.CreateUserRequest{Username: "bob"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created types.CreateUserResponse
	decodeBody(t, resp, &created)
	if created.Key == "" || created.Role != "user" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	resp = f.request(t, http.MethodPost, "/users/create", "admin", "admin-key", types.CreateUserRequest{Username: "bob"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", resp.StatusCode)
	}

	resp = f.request(t, http.MethodDelete, "/users/delete/bob", "admin", "admin-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp = f.request(t, http.MethodDelete, "/users/delete/bob", "admin", "admin-key", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/variables/set", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("alice", "alice-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestKeyFromURLValidation(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodGet, "/models/status/churn__x/pyfunc/3", "alice", "alice-key", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad key segment, got %d", resp.StatusCode)
	}
}
