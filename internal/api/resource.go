package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/budgie-app/budgie/internal/model"
)

// fetchList GETs a {data: [...]} collection. Every failure is a *FetchError.
func fetchList[T any](ctx context.Context, c *Client, res model.Resource, key, path string, query url.Values, decode func(json.RawMessage) (T, error)) ([]T, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, &FetchError{Resource: res, Key: key, Err: err}
	}
	if !resp.OK() {
		return nil, &FetchError{Resource: res, Key: key, Status: resp.Status, Err: errors.New(resp.Message())}
	}
	items, err := model.DecodeList(resp.Body, decode)
	if err != nil {
		return nil, &FetchError{Resource: res, Key: key, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return items, nil
}

// write sends a create or update and decodes the {data: {...}} record.
// Transport failures and non-2xx statuses are a *MutationError; a 2xx with an
// undecodable body is a plain error since the server has applied the write.
func write[T any](ctx context.Context, c *Client, res model.Resource, op Op, method, path string, body any, decode func(json.RawMessage) (T, error)) (T, error) {
	var zero T
	resp, err := c.Do(ctx, method, path, nil, body)
	if err != nil {
		return zero, &MutationError{Resource: res, Op: op, Err: err}
	}
	if !resp.OK() {
		return zero, &MutationError{Resource: res, Op: op, Status: resp.Status, Message: resp.Message()}
	}
	v, err := model.DecodeOne(resp.Body, decode)
	if err != nil {
		return zero, fmt.Errorf("decoding %s %s response: %w", op, res, err)
	}
	return v, nil
}

func remove(ctx context.Context, c *Client, res model.Resource, path string) error {
	resp, err := c.Do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return &MutationError{Resource: res, Op: OpDelete, Err: err}
	}
	if !resp.OK() {
		return &MutationError{Resource: res, Op: OpDelete, Status: resp.Status, Message: resp.Message()}
	}
	return nil
}

func itemPath(base, id string) string {
	return base + "/" + url.PathEscape(id)
}
