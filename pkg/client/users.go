package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// CreateUser registers a new platform account and returns its API key.
// Requires the admin role. The key is returned exactly once.
func (c *Client) CreateUser(ctx context.Context, username, role string) (types.CreateUserResponse, error) {
	var out types.CreateUserResponse
	err := c.do(ctx, http.MethodPost, "/users/create", types.CreateUserRequest{Username: username, Role: role}, &out)
	return out, err
}

// DeleteUser removes a platform account. Requires the admin role.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/users/delete/"+url.PathEscape(username), nil, nil)
}
