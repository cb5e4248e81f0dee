package api

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Some list endpoints return a bare array, others a paginated
// {"results": [...]} envelope depending on backend pagination settings.
// decodeResults accepts both.
func decodeResults[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "[api] decoding list response")
	}
	return envelope.Results, nil
}

func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return decodeResults[T](raw)
}
