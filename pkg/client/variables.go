package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// SetVariable stores value (any JSON-marshalable Go value) under name.
func (c *Client) SetVariable(ctx context.Context, name string, value any, overwrite bool) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	req := types.SetVariableRequest{
		VariableName: name,
		Value:        raw,
		Overwrite:    overwrite,
	}
	return c.do(ctx, http.MethodPost, "/variables/set", req, nil)
}

// GetVariable fetches the raw JSON value stored under name.
func (c *Client) GetVariable(ctx context.Context, name string) (json.RawMessage, error) {
	var out types.VariableResponse
	if err := c.do(ctx, http.MethodGet, "/variables/get/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetVariableInto fetches the variable and unmarshals it into v.
func (c *Client) GetVariableInto(ctx context.Context, name string, v any) error {
	raw, err := c.GetVariable(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal variable %s: %w", name, err)
	}
	return nil
}

// ListVariables returns all of the caller's variables keyed by name.
func (c *Client) ListVariables(ctx context.Context) (map[string]json.RawMessage, error) {
	var out types.VariablesResponse
	if err := c.do(ctx, http.MethodGet, "/variables/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Variables, nil
}

// DeleteVariable removes the variable stored under name.
func (c *Client) DeleteVariable(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/variables/delete/"+url.PathEscape(name), nil, nil)
}
