package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// UploadBytes stores b under name in the caller's data store.
func (c *Client) UploadBytes(ctx context.Context, name string, b []byte, overwrite bool) error {
	req := types.UploadRequest{
		Filename:  name,
		FileBytes: base64.StdEncoding.EncodeToString(b),
		Overwrite: overwrite,
	}
	return c.do(ctx, http.MethodPost, "/data/upload", req, nil)
}

// UploadFile reads localPath and stores its contents under name.
func (c *Client) UploadFile(ctx context.Context, localPath, name string, overwrite bool) error {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return c.UploadBytes(ctx, name, b, overwrite)
}

// DownloadBytes fetches the named file's contents.
func (c *Client) DownloadBytes(ctx context.Context, name string) ([]byte, error) {
	var out types.DownloadResponse
	if err := c.do(ctx, http.MethodPost, "/data/download", types.DownloadRequest{Filename: name}, &out); err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(out.FileBytes)
	if err != nil {
		return nil, fmt.Errorf("decode file bytes: %w", err)
	}
	return b, nil
}

// DownloadFile fetches the named file and writes it to localPath.
func (c *Client) DownloadFile(ctx context.Context, name, localPath string) error {
	b, err := c.DownloadBytes(ctx, name)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, b, 0o644)
}

// ListData enumerates files under dir in the caller's data store. An empty
// dir lists the root.
func (c *Client) ListData(ctx context.Context, dir string) ([]types.FileInfo, error) {
	var out types.ListDataResponse
	if err := c.do(ctx, http.MethodPost, "/data/list", types.ListDataRequest{Directory: dir}, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}
