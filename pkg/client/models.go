package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// DeployModel starts a serving container for spec. Requires the admin role.
func (c *Client) DeployModel(ctx context.Context, spec types.DeploySpec) (types.Deployment, error) {
	var out types.Deployment
	err := c.do(ctx, http.MethodPost, "/models/deploy", spec, &out)
	return out, err
}

// RemoveModel stops and forgets the deployment for key. Requires admin.
func (c *Client) RemoveModel(ctx context.Context, key types.ModelKey) error {
	return c.do(ctx, http.MethodDelete, "/models/remove", key, nil)
}

// ListDeployments returns all tracked deployments.
func (c *Client) ListDeployments(ctx context.Context) ([]types.Deployment, error) {
	var out types.DeploymentsResponse
	if err := c.do(ctx, http.MethodGet, "/models/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Deployments, nil
}

// ModelStatus returns the container runtime state for key.
func (c *Client) ModelStatus(ctx context.Context, key types.ModelKey) (string, error) {
	var out types.ModelStatusResponse
	if err := c.do(ctx, http.MethodGet, "/models/status"+keyPath(key), nil, &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// ModelLogs returns combined stdout/stderr of the deployment for key.
func (c *Client) ModelLogs(ctx context.Context, key types.ModelKey) (string, error) {
	var out types.ModelLogsResponse
	if err := c.do(ctx, http.MethodGet, "/models/logs"+keyPath(key), nil, &out); err != nil {
		return "", err
	}
	return out.Logs, nil
}

// Invoke sends payload to the deployed model and returns its raw response.
// The exchange is recorded in the platform's prediction log.
func (c *Client) Invoke(ctx context.Context, key types.ModelKey, payload json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/invoke"+keyPath(key), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.key)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	return json.RawMessage(b), nil
}

// InvokeInto sends payload and unmarshals the model response into v.
func (c *Client) InvokeInto(ctx context.Context, key types.ModelKey, payload any, v any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	out, err := c.Invoke(ctx, key, raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("unmarshal model response: %w", err)
	}
	return nil
}

// ParseModelKey parses "name/flavor/version" into a ModelKey.
func ParseModelKey(s string) (types.ModelKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return types.ModelKey{}, fmt.Errorf("model key must be name/flavor/version, got %q", s)
	}
	k := types.ModelKey{Name: parts[0], Flavor: parts[1], Version: parts[2]}
	return k, k.Validate()
}
