package client

import (
	"context"
	"net/http"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// GetPredictions fetches every recorded prediction for key.
func (c *Client) GetPredictions(ctx context.Context, key types.ModelKey) ([]types.Prediction, error) {
	var out types.PredictionsResponse
	if err := c.do(ctx, http.MethodGet, "/predictions/get"+keyPath(key), nil, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

// ListPredictionModels lists model keys that have stored predictions.
func (c *Client) ListPredictionModels(ctx context.Context) ([]types.ModelKey, error) {
	var out types.PredictionModelsResponse
	if err := c.do(ctx, http.MethodGet, "/predictions/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}
